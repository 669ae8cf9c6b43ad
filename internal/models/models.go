// Package models defines the core data structures for SivetachiBot.
//
// It includes the chat audit events, inbound messages, outbound replies and the
// API response envelope, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Direction tells whether a chat event was received or sent by the bot.
type Direction string

const (
	// DirectionIn marks a message received from a customer.
	DirectionIn Direction = "in"
	// DirectionOut marks a message sent by the bot.
	DirectionOut Direction = "out"
)

// MessageKind identifies the inbound message types the bot understands.
type MessageKind string

const (
	// MessageKindText is a plain text message.
	MessageKindText MessageKind = "text"
	// MessageKindListReply is a row picked from an interactive list message.
	MessageKindListReply MessageKind = "list_reply"
)

// Error variables for better error handling and testability
var (
	ErrEmptySender  = errors.New("sender cannot be empty")
	ErrEmptyMessage = errors.New("message has no text and no selection")
)

// ChatEvent is one entry of the audit log shown on the operator dashboard.
type ChatEvent struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Phone     string    `json:"phone"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundMessage is a customer message extracted from any transport.
type InboundMessage struct {
	ID          string      `json:"id,omitempty"` // provider message id, used for deduplication
	From        string      `json:"from"`
	Kind        MessageKind `json:"kind"`
	Text        string      `json:"text"`
	SelectionID string      `json:"selection_id,omitempty"` // list row id for list replies
	Time        int64       `json:"time"`
}

// Input returns the string the dialog engine should interpret: the structured
// selection id when the customer picked a list row, otherwise the typed text.
func (m InboundMessage) Input() string {
	if m.SelectionID != "" {
		return m.SelectionID
	}
	return m.Text
}

// Validate checks that the message can be processed.
func (m InboundMessage) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return ErrEmptySender
	}
	if strings.TrimSpace(m.Text) == "" && m.SelectionID == "" {
		return ErrEmptyMessage
	}
	return nil
}

// AuditText is the text recorded in the chat history for this message.
func (m InboundMessage) AuditText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.SelectionID
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
