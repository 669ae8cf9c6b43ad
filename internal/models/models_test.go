package models

import "testing"

func TestInboundMessageInput(t *testing.T) {
	text := InboundMessage{From: "584140000000", Kind: MessageKindText, Text: "hola"}
	if text.Input() != "hola" {
		t.Errorf("expected text input, got %q", text.Input())
	}

	list := InboundMessage{From: "584140000000", Kind: MessageKindListReply, Text: "Hamburguesa clasica", SelectionID: "h1"}
	if list.Input() != "h1" {
		t.Errorf("expected selection id input, got %q", list.Input())
	}
	if list.AuditText() != "Hamburguesa clasica" {
		t.Errorf("expected audit text to be the row title, got %q", list.AuditText())
	}
}

func TestInboundMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     InboundMessage
		wantErr error
	}{
		{"valid text", InboundMessage{From: "58414", Text: "hola"}, nil},
		{"valid selection", InboundMessage{From: "58414", SelectionID: "h1"}, nil},
		{"missing sender", InboundMessage{Text: "hola"}, ErrEmptySender},
		{"blank text", InboundMessage{From: "58414", Text: "   "}, ErrEmptyMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplyPrepend(t *testing.T) {
	r := Reply{Text: "Menu", List: &ListMessage{Body: "Menu", Button: "Ver"}}
	out := r.Prepend("Cerrado. ")

	if out.Text != "Cerrado. Menu" {
		t.Errorf("unexpected text %q", out.Text)
	}
	if out.List == nil || out.List.Body != "Cerrado. Menu" {
		t.Errorf("unexpected list body %+v", out.List)
	}
	if r.List.Body != "Menu" {
		t.Error("Prepend must not modify the original list")
	}
}

func TestConversationStateResetOrder(t *testing.T) {
	s := NewConversationState("58414")
	s.Greeted = true
	s.HandoffRequested = true
	s.Pending = PendingAddress
	s.SelectedItem = &Item{ID: "h1"}
	s.SelectedItemQuantity = 2
	s.OrderText = "2x Hamburguesa clasica - Bs. 6."
	s.ServiceType = ServiceDelivery
	s.Address = "Zona X"
	s.LastReplyByKey["greeting"] = "Hola"

	s.ResetOrder()

	if s.Pending != PendingNone || s.SelectedItem != nil || s.SelectedItemQuantity != 0 ||
		s.OrderText != "" || s.ServiceType != ServiceNone || s.Address != "" {
		t.Errorf("order fields not reset: %+v", s)
	}
	if !s.Greeted || !s.HandoffRequested {
		t.Error("greeted and handoff flags must survive an order reset")
	}
	if s.LastReplyByKey["greeting"] != "Hola" {
		t.Error("reply memory must survive an order reset")
	}
}

func TestConversationStateAwaitingFlags(t *testing.T) {
	s := NewConversationState("58414")
	s.Pending = PendingItemQuantity

	active := 0
	for p, on := range s.AwaitingFlags() {
		if on {
			active++
			if p != PendingItemQuantity {
				t.Errorf("unexpected active flag %s", p)
			}
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active flag, got %d", active)
	}
	if !s.Awaiting(PendingItemQuantity) || s.Awaiting(PendingNone) {
		t.Error("Awaiting reported the wrong slot")
	}
}
