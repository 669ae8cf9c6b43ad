// Package models defines state management structures for SivetachiBot conversations.
package models

import "time"

// ConversationState is the mutable dialog state kept for one customer.
type ConversationState struct {
	ConversationID       string            `json:"conversation_id"`
	Greeted              bool              `json:"greeted"`
	HandoffRequested     bool              `json:"handoff_requested"`
	Pending              PendingInput      `json:"pending,omitempty"`
	SelectedItem         *Item             `json:"selected_item,omitempty"`
	SelectedItemQuantity int               `json:"selected_item_quantity"`
	OrderText            string            `json:"order_text,omitempty"`
	ServiceType          ServiceType       `json:"service_type,omitempty"`
	Address              string            `json:"address,omitempty"`
	LastReplyByKey       map[string]string `json:"last_reply_by_key,omitempty"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// NewConversationState returns a freshly initialized state for a conversation.
func NewConversationState(conversationID string) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		LastReplyByKey: make(map[string]string),
		UpdatedAt:      time.Now(),
	}
}

// Awaiting reports whether the conversation waits for the given slot.
func (s *ConversationState) Awaiting(p PendingInput) bool {
	return p != PendingNone && s.Pending == p
}

// AwaitingFlags returns the boolean view of the pending slot, one entry per slot.
func (s *ConversationState) AwaitingFlags() map[PendingInput]bool {
	flags := make(map[PendingInput]bool, len(AllPendingInputs))
	for _, p := range AllPendingInputs {
		flags[p] = s.Pending == p
	}
	return flags
}

// ResetOrder clears every awaiting slot and order-in-progress field.
// Greeted, HandoffRequested and the reply memory survive a reset.
func (s *ConversationState) ResetOrder() {
	s.Pending = PendingNone
	s.SelectedItem = nil
	s.SelectedItemQuantity = 0
	s.OrderText = ""
	s.ServiceType = ServiceNone
	s.Address = ""
}
