package flow

import (
	"fmt"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
)

// Action is the flow side effect a matched rule starts.
type Action string

// Rule actions.
const (
	ActionNone           Action = ""
	ActionShowMenu       Action = "show_menu"
	ActionBrowseCategory Action = "browse_category"
	ActionReserve        Action = "reserve"
	ActionDelivery       Action = "delivery"
	ActionHandoff        Action = "handoff"
)

// ReplyPolicy is how a rule produces its reply text: a FixedReply or a VariedReply.
type ReplyPolicy interface {
	Candidates() []string
}

// FixedReply always answers with the same text.
type FixedReply string

// Candidates implements ReplyPolicy.
func (r FixedReply) Candidates() []string { return []string{string(r)} }

// VariedReply answers with one of several texts, never the same one twice in a row.
type VariedReply []string

// Candidates implements ReplyPolicy.
func (r VariedReply) Candidates() []string { return []string(r) }

// Rule maps keywords found in normalized input to a reply and an optional action.
type Rule struct {
	Key      string
	Keywords []string    // normalized; any substring hit selects the rule
	Reply    ReplyPolicy // may be nil for actions that render their own reply
	Action   Action
	Category string // category key for ActionBrowseCategory
	FollowUp bool   // append the "anything else" suffix to terminal replies
}

// Rule keys referenced by numeric shortcuts and tests.
const (
	RuleGreeting  = "greeting"
	RuleMenu      = "menu"
	RulePrices    = "prices"
	RuleHours     = "hours"
	RuleLocation  = "location"
	RuleReserve   = "reserve"
	RuleDelivery  = "delivery"
	RulePayment   = "payment"
	RulePromos    = "promos"
	RuleEvents    = "events"
	RuleDietary   = "dietary"
	RuleComplaint = "complaint"
	RuleHandoff   = "handoff"
	RuleThanks    = "thanks"
	RuleDefault   = "default"
)

// CategoryRuleKey is the rule key of the browse rule for a catalog category.
func CategoryRuleKey(categoryKey string) string {
	return "category:" + categoryKey
}

// DefaultRules builds the ordered rule table for a catalog. Order is priority:
// the first rule with a keyword contained in the input wins.
func DefaultRules(cat *catalog.Catalog) []Rule {
	rules := []Rule{
		{
			Key: RuleGreeting,
			Keywords: []string{
				"hola", "holi", "hey", "epa", "epale", "buenas", "buen dia", "buenos dias",
				"buenas tardes", "buenas noches", "que tal", "q tal", "que hubo", "qlq",
				"qloq", "que lo que", "como estas",
			},
			Reply: VariedReply{
				fmt.Sprintf("Hola. Soy el bot de %s. En que te puedo ayudar? Escribe \"menu\" para ver las opciones.", cat.Business.Name),
				fmt.Sprintf("Hola! Que gusto saludarte. Aqui %s. Escribe \"menu\" para ver lo que tenemos hoy.", cat.Business.Name),
				"Buenas! Quieres ver el menu, hacer un pedido o reservar? Escribe \"menu\" para empezar.",
			},
		},
	}

	for _, c := range cat.Categories {
		rules = append(rules, Rule{
			Key:      CategoryRuleKey(c.Key),
			Keywords: normalizeAll(c.Keywords),
			Action:   ActionBrowseCategory,
			Category: c.Key,
		})
	}

	rules = append(rules,
		Rule{
			Key:      RuleMenu,
			Keywords: []string{"menu", "carta", "opciones", "ayuda", "info", "informacion", "platos", "comida"},
			Action:   ActionShowMenu,
		},
		Rule{
			Key:      RulePrices,
			Keywords: []string{"precio", "costo", "valor", "tarifa", "cuanto cuesta", "cuanto vale"},
			Reply:    FixedReply("Claro. Elige una categoria del menu (1 a 4) y veras cada producto con su precio."),
			FollowUp: true,
		},
		Rule{
			Key:      RuleHours,
			Keywords: []string{"horario", "abren", "abierto", "cierran", "cerrado", "a que hora"},
			Reply:    FixedReply("Horario: " + cat.HoursText()),
			FollowUp: true,
		},
		Rule{
			Key:      RuleLocation,
			Keywords: []string{"ubicacion", "direccion", "donde estan", "donde quedan", "como llegar"},
			Reply:    FixedReply(cat.Business.Location),
			FollowUp: true,
		},
		Rule{
			Key:      RuleReserve,
			Keywords: []string{"reservar", "reserva", "mesa", "agendar"},
			Reply:    FixedReply("Claro. Para reservar dime fecha, hora y cantidad de personas."),
			Action:   ActionReserve,
		},
		Rule{
			Key:      RuleDelivery,
			Keywords: []string{"delivery", "envio", "entrega", "domicilio"},
			Reply:    FixedReply("Si tenemos delivery. Escribe tu pedido junto con tu zona y direccion y te confirmamos disponibilidad y tiempo."),
			Action:   ActionDelivery,
		},
		Rule{
			Key:      RulePayment,
			Keywords: []string{"pago", "transferencia", "zelle", "efectivo", "pago movil"},
			Reply:    FixedReply("Aceptamos pago movil, transferencia, Zelle y efectivo. Que metodo prefieres?"),
			FollowUp: true,
		},
		Rule{
			Key:      RulePromos,
			Keywords: []string{"promo", "oferta"},
			Reply: VariedReply{
				"Tenemos promos activas. Dime si prefieres combos, bebidas o postres.",
				"Esta semana hay combos especiales de hamburguesa con refresco. Te interesa?",
				"Pregunta por nuestra promo de pizza familiar de los viernes.",
			},
			FollowUp: true,
		},
		Rule{
			Key:      RuleEvents,
			Keywords: []string{"cumple", "evento", "grupo", "celebracion"},
			Reply:    FixedReply("Atendemos eventos. Dime fecha, cantidad de personas y tipo de evento."),
			FollowUp: true,
		},
		Rule{
			Key:      RuleDietary,
			Keywords: []string{"alergia", "sin gluten", "vegetariano", "vegano", "celiaco"},
			Reply:    FixedReply("Tenemos opciones especiales. Dime tu restriccion y te recomiendo platos."),
			FollowUp: true,
		},
		Rule{
			Key:      RuleComplaint,
			Keywords: []string{"reclamo", "queja", "problema", "soporte"},
			Reply:    FixedReply("Lamento el inconveniente. Cuentame que paso y te ayudamos de inmediato."),
			FollowUp: true,
		},
		Rule{
			Key:      RuleHandoff,
			Keywords: []string{"asesor", "humano", "operador", "atencion", "persona real"},
			Reply:    FixedReply("Te paso con un asesor. Deja tu nombre y un resumen de lo que necesitas."),
			Action:   ActionHandoff,
		},
		Rule{
			Key:      RuleThanks,
			Keywords: []string{"gracias", "perfecto", "listo", "ok"},
			Reply: VariedReply{
				"Con gusto. Si necesitas algo mas, avisame.",
				"A la orden! Aqui estoy si necesitas algo mas.",
				"Gracias a ti. Buen provecho!",
			},
		},
	)
	return rules
}

// defaultReplies nudge the customer towards the menu when nothing matched.
var defaultReplies = VariedReply{
	"Gracias por escribir. Escribe \"menu\" para ver opciones rapidas.",
	"No estoy seguro de haberte entendido. Escribe \"menu\" para ver lo que puedo hacer.",
	"Puedo ayudarte con pedidos, reservas y horarios. Escribe \"menu\" para empezar.",
}

func normalizeAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if n := Normalize(k); n != "" {
			out = append(out, n)
		}
	}
	return out
}
