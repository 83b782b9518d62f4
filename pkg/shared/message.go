// Package shared holds the messages exchanged with remote terminals.
package shared

import (
	"encoding/json"
	"fmt"
)

// MessageType definiert den Typ einer Nachricht für die WebSocket-Kommunikation.
type MessageType string

// Client -> Server
const (
	MessageTypeInput MessageType = "input" // eine Eingabezeile (Programmzeile, Befehl oder INPUT-Antwort)
	MessageTypeBreak MessageType = "break" // laufendes Programm abbrechen
)

// Server -> Client
const (
	MessageTypeText         MessageType = "text"          // Programmausgabe
	MessageTypeError        MessageType = "error"         // ?... ERROR oder BREAK
	MessageTypeReady        MessageType = "ready"         // READY., Interpreter wartet auf Befehle
	MessageTypeInputRequest MessageType = "input_request" // INPUT wartet auf eine Antwort
	MessageTypeClear        MessageType = "clear"         // Bildschirm löschen
	MessageTypeColor        MessageType = "color"         // Vorder-/Hintergrundfarbe geändert
	MessageTypeSession      MessageType = "session"       // Session-ID und Name
)

var clientTypes = map[MessageType]bool{
	MessageTypeInput: true,
	MessageTypeBreak: true,
}

// Message is one JSON frame on the wire.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`

	// Für INPUT_REQUEST
	Prompt string `json:"prompt,omitempty"`

	// Für COLOR
	Foreground *int `json:"fg,omitempty"`
	Background *int `json:"bg,omitempty"`
	Border     *int `json:"border,omitempty"`

	// Für SESSION
	SessionID string `json:"sessionId,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Text returns a text message.
func Text(content string) Message {
	return Message{Type: MessageTypeText, Content: content}
}

// Error returns an error message.
func Error(content string) Message {
	return Message{Type: MessageTypeError, Content: content}
}

// Color returns a colour change message.
func Color(fg, bg int) Message {
	return Message{Type: MessageTypeColor, Foreground: &fg, Background: &bg}
}

// Border returns a border colour message.
func Border(color int) Message {
	return Message{Type: MessageTypeColor, Border: &color}
}

// DecodeClientMessage parses a client frame and rejects types a client may
// not send. Input longer than maxInput runes is refused when maxInput > 0.
func DecodeClientMessage(data []byte, maxInput int) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	if !clientTypes[msg.Type] {
		return Message{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if maxInput > 0 && len([]rune(msg.Content)) > maxInput {
		return Message{}, fmt.Errorf("input too long: %d characters, limit %d", len([]rune(msg.Content)), maxInput)
	}
	return msg, nil
}
