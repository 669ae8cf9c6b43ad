package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// Customer facing texts of the ordering flows.
const (
	HandoffAckText         = "Un asesor te respondera en breve. Gracias por tu paciencia."
	FollowUpSuffix         = "Deseas algo mas? Escribe \"menu\" para ver opciones."
	QuantityInvalidText    = "Por favor indica una cantidad valida entre 1 y 20."
	ServicePromptText      = "Como deseas recibir tu pedido? Responde \"delivery\" o \"retiro en tienda\"."
	AddressPromptText      = "Indica tu direccion de entrega (zona, calle y punto de referencia)."
	PaymentRetryText       = "Por favor responde \"si\" para recibir los datos de pago o \"no\" para pagar al recibir."
	PayOnDeliveryText      = "Perfecto. Pagaras al recibir tu pedido. Ya lo estamos preparando. Gracias por tu compra!"
	ReservationPromptText  = "Para reservar necesito fecha, hora y cantidad de personas. Por ejemplo: sabado 8pm, 4 personas."
	DeliveryDetailsPrompt  = "Para el delivery necesito tu pedido y tu direccion. Por ejemplo: 2 pizzas margarita, Zona X, Calle Y."
	DefaultPaymentTemplate = "Para pagar tu pedido ({{order}}) puedes usar pago movil, transferencia o Zelle. Envia el comprobante por este chat y confirmamos tu orden."
)

const (
	minQuantity      = 1
	maxQuantity      = 20
	minDetailsLength = 4
)

var (
	extrasNegatives  = wordSet("no", "ninguno", "ninguna", "nada", "sin extras", "no gracias")
	paymentYes       = wordSet("si", "ok", "dale", "claro", "listo", "vale", "pagar")
	paymentNo        = wordSet("no", "luego", "despues", "tarde")
	inStoreKeywords  = []string{"tienda", "comer", "para llevar", "llevar", "retirar"}
	deliveryKeywords = []string{"delivery"}
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, normalized string) bool {
	_, ok := set[normalized]
	return ok
}

// hasWord reports whether any whitespace separated word of normalized is in set.
func hasWord(set map[string]struct{}, normalized string) bool {
	for _, w := range strings.Fields(normalized) {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func containsAny(normalized string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}

// fixedMenuOptions are the main menu entries after the catalog categories.
var fixedMenuOptions = []models.ListRow{
	{ID: ShortcutReserve, Title: "Reservas", Description: "Reserva una mesa"},
	{ID: ShortcutDelivery, Title: "Delivery", Description: "Pide a domicilio"},
	{ID: ShortcutHours, Title: "Horarios", Description: "Cuando estamos abiertos"},
	{ID: ShortcutLocation, Title: "Ubicacion", Description: "Donde encontrarnos"},
	{ID: ShortcutHandoff, Title: "Hablar con un asesor", Description: "Atencion personalizada"},
}

func mainMenuRows(cat *catalog.Catalog) []models.ListRow {
	rows := make([]models.ListRow, 0, len(cat.Categories)+len(fixedMenuOptions))
	for _, c := range cat.Categories {
		if c.Shortcut == "" {
			continue
		}
		rows = append(rows, models.ListRow{
			ID:          c.Shortcut,
			Title:       models.TruncateRunes(c.Title, models.MaxListRowTitleLength),
			Description: "Ver " + strings.ToLower(c.Title),
		})
	}
	rows = append(rows, fixedMenuOptions...)
	if len(rows) > models.MaxListRows {
		rows = rows[:models.MaxListRows]
	}
	return rows
}

// mainMenu renders the numbered main menu, with intro placed before it.
func mainMenu(cat *catalog.Catalog, intro string) models.Reply {
	rows := mainMenuRows(cat)

	var b strings.Builder
	if intro != "" {
		b.WriteString(intro)
		b.WriteString("\n\n")
	}
	b.WriteString("Menu principal:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s) %s\n", r.ID, r.Title)
	}
	b.WriteString("\nResponde con el numero de la opcion o escribe lo que buscas. Escribe \"menu\" o 0 para volver aqui.")

	body := "Elige una opcion del menu."
	if intro != "" {
		body = intro + "\n\n" + body
	}
	return models.Reply{
		Text: b.String(),
		List: &models.ListMessage{
			Header:   models.TruncateRunes(cat.Business.Name, 60),
			Body:     body,
			Footer:   "Escribe menu o 0 para volver aqui",
			Button:   "Ver opciones",
			Sections: []models.ListSection{{Title: "Opciones", Rows: rows}},
		},
	}
}

// categoryMenu renders the items of a category as a selectable list.
func categoryMenu(c models.Category) models.Reply {
	rows := make([]models.ListRow, 0, len(c.Items))
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", c.Title)
	for _, item := range c.Items {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", item.ID, item.Title, item.Price)
		desc := item.Price
		if item.Description != "" {
			desc += " - " + item.Description
		}
		rows = append(rows, models.ListRow{
			ID:          item.ID,
			Title:       models.TruncateRunes(item.Title, models.MaxListRowTitleLength),
			Description: models.TruncateRunes(desc, models.MaxListRowDescLength),
		})
	}
	example := ""
	if len(c.Items) > 0 {
		example = fmt.Sprintf(" (por ejemplo %s)", c.Items[0].ID)
	}
	fmt.Fprintf(&b, "\nEscribe el codigo del producto%s o describe tu pedido con cantidades.", example)

	return models.Reply{
		Text: b.String(),
		List: &models.ListMessage{
			Header:   models.TruncateRunes(c.Title, 60),
			Body:     fmt.Sprintf("Estos son nuestros productos de %s. Elige uno para pedirlo o escribe tu pedido.", strings.ToLower(c.Title)),
			Footer:   "Escribe menu o 0 para volver",
			Button:   "Ver productos",
			Sections: []models.ListSection{{Title: models.TruncateRunes(c.Title, models.MaxListRowTitleLength), Rows: rows}},
		},
	}
}

func greetingIntro(cat *catalog.Catalog) string {
	return fmt.Sprintf("Hola! Bienvenido a %s. Soy el asistente virtual y te ayudo con pedidos, reservas y horarios.", cat.Business.Name)
}

func quantityPrompt(item models.Item) string {
	return fmt.Sprintf("Cuantas unidades de %s (%s) deseas? Responde con un numero del %d al %d.", item.Title, item.Price, minQuantity, maxQuantity)
}

func extrasPrompt(item models.Item, qty int) string {
	return fmt.Sprintf("Perfecto, %dx %s. Deseas agregar algun extra o indicacion especial? Por ejemplo: sin cebolla, extra queso. Si no, responde \"no\".", qty, item.Title)
}

func composeOrder(item models.Item, qty int, extras string) string {
	order := fmt.Sprintf("%dx %s - %s.", qty, item.Title, item.Price)
	if extras != "" {
		order += fmt.Sprintf(" Extras: %s.", extras)
	}
	return order
}

func paymentPrompt(state *models.ConversationState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de tu pedido:\n%s\nServicio: %s\n", state.OrderText, state.ServiceType.Label())
	if state.Address != "" {
		fmt.Fprintf(&b, "Direccion: %s\n", state.Address)
	}
	b.WriteString("\nDeseas pagar ahora? Responde \"si\" para recibir los datos de pago o \"no\" para pagar al recibir.")
	return b.String()
}

// renderPayment fills the payment instructions template.
func renderPayment(template string, state *models.ConversationState) string {
	address := state.Address
	if address == "" {
		address = "no aplica"
	}
	return strings.NewReplacer(
		"{{order}}", state.OrderText,
		"{{service}}", state.ServiceType.Label(),
		"{{address}}", address,
	).Replace(template)
}
