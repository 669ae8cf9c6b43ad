// Package flow implements the restaurant dialog: input normalization, keyword
// matching, reply variety, per-conversation state and the ordering state machine.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// Assistant answers free text the rule table could not classify.
type Assistant interface {
	GenerateReply(ctx context.Context, text string) (string, error)
}

// Engine drives the per-conversation dialog state machine.
type Engine struct {
	catalog         *catalog.Catalog
	matcher         *Matcher
	selector        *Selector
	states          *StateStore
	assistant       Assistant
	paymentTemplate string
	now             func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAssistant consults a only for input that no rule, shortcut or pending slot
// claimed. Matched keywords and the ordering flows never reach the assistant.
func WithAssistant(a Assistant) EngineOption {
	return func(e *Engine) { e.assistant = a }
}

// WithPaymentInstructions sets the template sent when the customer wants to pay now.
// {{order}}, {{service}} and {{address}} are replaced with the order details.
func WithPaymentInstructions(template string) EngineOption {
	return func(e *Engine) {
		if strings.TrimSpace(template) != "" {
			e.paymentTemplate = template
		}
	}
}

// WithSelector replaces the reply variety selector.
func WithSelector(s *Selector) EngineOption {
	return func(e *Engine) { e.selector = s }
}

// WithRules replaces the rule table.
func WithRules(rules []Rule) EngineOption {
	return func(e *Engine) { e.matcher = NewMatcher(rules, e.catalog) }
}

// WithClock sets the time source used to stamp conversation activity.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over cat whose state lives in states.
func NewEngine(cat *catalog.Catalog, states *StateStore, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:         cat,
		states:          states,
		paymentTemplate: DefaultPaymentTemplate,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.matcher == nil {
		e.matcher = NewMatcher(DefaultRules(cat), cat)
	}
	if e.selector == nil {
		e.selector = NewSelector(nil)
	}
	return e
}

// States returns the conversation state store.
func (e *Engine) States() *StateStore {
	return e.states
}

// Process applies one inbound message to its conversation and returns the reply.
// State changes are committed before returning, whatever happens to the reply afterwards.
func (e *Engine) Process(ctx context.Context, msg models.InboundMessage) (models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return models.Reply{}, err
	}
	if err := msg.Validate(); err != nil {
		return models.Reply{}, fmt.Errorf("cannot process message: %w", err)
	}

	unlock := e.states.Lock(msg.From)
	defer unlock()

	state := e.states.Get(msg.From)
	before := state.Pending
	reply := e.step(ctx, state, msg)
	state.UpdatedAt = e.now()

	slog.Debug("Engine.Process: turn applied", "from", msg.From, "pending_before", before, "pending_after", state.Pending, "handoff", state.HandoffRequested)
	return reply, nil
}

func (e *Engine) step(ctx context.Context, state *models.ConversationState, msg models.InboundMessage) models.Reply {
	input := strings.TrimSpace(msg.Input())
	normalized := Normalize(input)

	if !state.Greeted {
		state.Greeted = true
		return mainMenu(e.catalog, greetingIntro(e.catalog))
	}

	if state.HandoffRequested {
		return text(HandoffAckText)
	}

	// While a quantity is awaited "0" is an invalid quantity, not the menu shortcut.
	if normalized == "menu" || (normalized == ShortcutMenu && state.Pending != models.PendingItemQuantity) {
		state.ResetOrder()
		return mainMenu(e.catalog, "")
	}

	// A tapped row from any earlier list restarts the flow at that row. Typed item
	// ids are only honored while the customer is browsing.
	tapped := msg.Kind == models.MessageKindListReply && msg.SelectionID != ""
	if tapped && e.matcher.IsShortcut(normalized) {
		state.ResetOrder()
		return e.onIdle(ctx, state, input, normalized)
	}
	if !tapped && !browsing(state) {
		return e.onPending(ctx, state, input, normalized)
	}
	if item, ok := e.catalog.Lookup(normalized); ok {
		state.ResetOrder()
		selected := item
		state.SelectedItem = &selected
		state.Pending = models.PendingItemQuantity
		return text(quantityPrompt(item))
	}
	return e.onPending(ctx, state, input, normalized)
}

// browsing reports whether a typed catalog item id should start an item order.
func browsing(state *models.ConversationState) bool {
	return state.Pending == models.PendingNone || state.Pending == models.PendingOrderText
}

func (e *Engine) onPending(ctx context.Context, state *models.ConversationState, input, normalized string) models.Reply {
	switch state.Pending {
	case models.PendingItemQuantity:
		return e.onQuantity(state, input)
	case models.PendingItemExtras:
		return e.onExtras(state, input, normalized)
	case models.PendingOrderText:
		state.OrderText = input
		state.Pending = models.PendingServiceType
		return text("Anotado: " + input + "\n\n" + ServicePromptText)
	case models.PendingServiceType:
		return e.onServiceType(state, normalized)
	case models.PendingAddress:
		state.Address = input
		state.Pending = models.PendingPaymentConfirm
		return text(paymentPrompt(state))
	case models.PendingPaymentConfirm:
		return e.onPaymentConfirm(state, normalized)
	case models.PendingReservationDetails:
		return e.onReservationDetails(state, input)
	case models.PendingDeliveryDetails:
		return e.onDeliveryDetails(state, input)
	}

	return e.onIdle(ctx, state, input, normalized)
}

func (e *Engine) onQuantity(state *models.ConversationState, input string) models.Reply {
	if state.SelectedItem == nil {
		state.ResetOrder()
		return mainMenu(e.catalog, "")
	}
	qty, err := strconv.Atoi(input)
	if err != nil || qty < minQuantity || qty > maxQuantity {
		return text(QuantityInvalidText)
	}
	state.SelectedItemQuantity = qty
	state.Pending = models.PendingItemExtras
	return text(extrasPrompt(*state.SelectedItem, qty))
}

func (e *Engine) onExtras(state *models.ConversationState, input, normalized string) models.Reply {
	if state.SelectedItem == nil {
		state.ResetOrder()
		return mainMenu(e.catalog, "")
	}
	extras := input
	if inSet(extrasNegatives, normalized) {
		extras = ""
	}
	state.OrderText = composeOrder(*state.SelectedItem, state.SelectedItemQuantity, extras)
	state.Pending = models.PendingServiceType
	return text("Tu pedido: " + state.OrderText + "\n\n" + ServicePromptText)
}

func (e *Engine) onServiceType(state *models.ConversationState, normalized string) models.Reply {
	switch {
	case containsAny(normalized, deliveryKeywords):
		state.ServiceType = models.ServiceDelivery
		state.Pending = models.PendingAddress
		return text(AddressPromptText)
	case containsAny(normalized, inStoreKeywords):
		state.ServiceType = models.ServiceInStore
		state.Pending = models.PendingPaymentConfirm
		return text(paymentPrompt(state))
	default:
		return text(ServicePromptText)
	}
}

func (e *Engine) onPaymentConfirm(state *models.ConversationState, normalized string) models.Reply {
	yes, no := hasWord(paymentYes, normalized), hasWord(paymentNo, normalized)
	switch {
	case yes && !no:
		instructions := renderPayment(e.paymentTemplate, state)
		state.ResetOrder()
		return text(instructions)
	case no && !yes:
		state.ResetOrder()
		return text(PayOnDeliveryText)
	default:
		return text(PaymentRetryText)
	}
}

func (e *Engine) onReservationDetails(state *models.ConversationState, input string) models.Reply {
	if utf8.RuneCountInString(input) < minDetailsLength {
		return text(ReservationPromptText)
	}
	state.Pending = models.PendingNone
	return text(fmt.Sprintf("Listo, registramos tu solicitud de reserva: %s. Te confirmaremos la disponibilidad en breve.", input))
}

func (e *Engine) onDeliveryDetails(state *models.ConversationState, input string) models.Reply {
	if utf8.RuneCountInString(input) < minDetailsLength {
		return text(DeliveryDetailsPrompt)
	}
	state.OrderText = input
	state.ServiceType = models.ServiceDelivery
	state.Pending = models.PendingPaymentConfirm
	return text(paymentPrompt(state))
}

func (e *Engine) onIdle(ctx context.Context, state *models.ConversationState, input, normalized string) models.Reply {
	m := e.matcher.Match(normalized)
	if m.Default {
		return e.fallback(ctx, state, input)
	}

	rule := m.Rule
	switch rule.Action {
	case ActionShowMenu:
		return mainMenu(e.catalog, "")
	case ActionBrowseCategory:
		c, ok := e.catalog.CategoryByKey(rule.Category)
		if !ok {
			slog.Warn("Engine.onIdle: rule references unknown category", "rule", rule.Key, "category", rule.Category)
			return mainMenu(e.catalog, "")
		}
		state.Pending = models.PendingOrderText
		return categoryMenu(c)
	case ActionReserve:
		state.Pending = models.PendingReservationDetails
		return text(e.pick(state, rule))
	case ActionDelivery:
		state.Pending = models.PendingDeliveryDetails
		return text(e.pick(state, rule))
	case ActionHandoff:
		state.HandoffRequested = true
		slog.Info("Engine.onIdle: human handoff requested", "conversationID", state.ConversationID)
		return text(e.pick(state, rule))
	}

	reply := e.pick(state, rule)
	if rule.FollowUp {
		reply += "\n\n" + FollowUpSuffix
	}
	return text(reply)
}

func (e *Engine) fallback(ctx context.Context, state *models.ConversationState, input string) models.Reply {
	if e.assistant != nil {
		answer, err := e.assistant.GenerateReply(ctx, input)
		if err == nil && strings.TrimSpace(answer) != "" {
			return text(strings.TrimSpace(answer))
		}
		if err != nil {
			slog.Warn("Engine.fallback: assistant unavailable, using canned reply", "conversationID", state.ConversationID, "error", err)
		}
	}
	return text(e.selector.Pick(state, RuleDefault, defaultReplies.Candidates()))
}

func (e *Engine) pick(state *models.ConversationState, rule Rule) string {
	if rule.Reply == nil {
		return ""
	}
	return e.selector.Pick(state, rule.Key, rule.Reply.Candidates())
}

func text(s string) models.Reply {
	return models.Reply{Text: s}
}
