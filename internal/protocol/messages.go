package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ent0n29/amora/internal/gesture"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeHandFrame     MessageType = "hand_frame"
	TypeClientControl MessageType = "client_control"
	TypeOverlayFrame  MessageType = "overlay_frame"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Client control actions.
const (
	ActionReset = "reset"
	ActionStop  = "stop"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// HandFrame carries one detector result from the browser.
type HandFrame struct {
	Type      MessageType    `json:"type"`
	SessionID string         `json:"session_id"`
	Seq       int64          `json:"seq"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Hands     []gesture.Hand `json:"hands"`
	TSMs      int64          `json:"ts_ms"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
	Reason    string      `json:"reason,omitempty"`
}

// OverlayFrame is the loop output for the frame with the same Seq.
type OverlayFrame struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id"`
	Seq       int64           `json:"seq"`
	Overlay   gesture.Overlay `json:"overlay"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeHandFrame:
		var msg HandFrame
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Width <= 0 || msg.Height <= 0 {
			return nil, errors.New("invalid hand_frame")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
