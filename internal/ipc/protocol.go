// Package ipc implements the framed control protocol between justcalld
// and its clients.
//
// Messages are length-prefixed with a fixed 16-byte header followed by a
// JSON payload. The daemon listens on a Unix socket with owner-only
// permissions; the kernel verifies the connecting process, so there is no
// separate authentication step.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"justcall/internal/history"
	"justcall/internal/settings"
)

const (
	// ProtocolMagic identifies justcall protocol messages ("JCIP").
	ProtocolMagic uint32 = 0x4A434950

	// ProtocolVersion is the current protocol version.
	ProtocolVersion uint8 = 1

	// HeaderSize is the fixed size of the message header in bytes.
	HeaderSize = 16

	// MaxPayloadSize caps a single message payload.
	MaxPayloadSize = 64 * 1024 * 1024
)

// MessageType identifies the type of message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing         MessageType = 0x0001
	MsgPong         MessageType = 0x0002
	MsgHandshake    MessageType = 0x0003
	MsgHandshakeAck MessageType = 0x0004
	MsgError        MessageType = 0x0005
	MsgShutdown     MessageType = 0x0006

	// Status messages (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Call control messages (0x02xx)
	MsgJoin       MessageType = 0x0200
	MsgJoinResp   MessageType = 0x0201
	MsgHangup     MessageType = 0x0202
	MsgHangupResp MessageType = 0x0203

	// Target management messages (0x03xx)
	MsgListTargets      MessageType = 0x0300
	MsgListTargetsResp  MessageType = 0x0301
	MsgAddTarget        MessageType = 0x0302
	MsgAddTargetResp    MessageType = 0x0303
	MsgRemoveTarget     MessageType = 0x0304
	MsgRemoveTargetResp MessageType = 0x0305
	MsgUpdateTarget     MessageType = 0x0306
	MsgUpdateTargetResp MessageType = 0x0307
	MsgSetPrimary       MessageType = 0x0308
	MsgSetPrimaryResp   MessageType = 0x0309

	// Pairing messages (0x04xx)
	MsgGenerateCode     MessageType = 0x0400
	MsgGenerateCodeResp MessageType = 0x0401
	MsgDeriveRoom       MessageType = 0x0402
	MsgDeriveRoomResp   MessageType = 0x0403

	// Settings messages (0x05xx)
	MsgGetSettings     MessageType = 0x0500
	MsgGetSettingsResp MessageType = 0x0501
	MsgSetKeybinds     MessageType = 0x0502
	MsgSetKeybindsResp MessageType = 0x0503

	// Event messages (0x06xx)
	MsgSubscribe       MessageType = 0x0600
	MsgSubscribeResp   MessageType = 0x0601
	MsgUnsubscribe     MessageType = 0x0602
	MsgUnsubscribeResp MessageType = 0x0603
	MsgEvent           MessageType = 0x0604

	// History messages (0x07xx)
	MsgGetHistory     MessageType = 0x0700
	MsgGetHistoryResp MessageType = 0x0701
)

// Message flags
const (
	FlagCompressed uint8 = 0x01
	FlagEncrypted  uint8 = 0x02
	FlagJSON       uint8 = 0x04
)

// Header is the fixed-size message header.
type Header struct {
	Magic     uint32 // Protocol magic number
	Version   uint8  // Protocol version
	Flags     uint8  // Message flags
	Type      uint16 // Message type
	RequestID uint32 // Request correlation ID
	Length    uint32 // Payload length
}

// Message is a complete protocol message.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a message with the given type and payload.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Flags:     FlagJSON,
			Type:      uint16(msgType),
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write serializes the message to a writer.
func (m *Message) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], m.Header.Magic)
	buf[4] = m.Header.Version
	buf[5] = m.Header.Flags
	binary.BigEndian.PutUint16(buf[6:8], m.Header.Type)
	binary.BigEndian.PutUint32(buf[8:12], m.Header.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], m.Header.Length)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(m.Payload) > 0 {
		if _, err := w.Write(m.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	return nil
}

// ReadHeader reads and parses a message header.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      binary.BigEndian.Uint16(buf[6:8]),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic: %08x", h.Magic)
	}
	if h.Version != ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	if h.Length > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
	}

	return h, nil
}

// ReadMessage reads a complete message from a reader.
func ReadMessage(r io.Reader) (*Message, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	msg := &Message{Header: *header}
	if header.Length > 0 {
		msg.Payload = make([]byte, header.Length)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	return msg, nil
}

// Encode marshals a value into a message payload.
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Decode unmarshals a message payload into a value.
func Decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}

// NewResponse creates a response message with an encoded payload.
func NewResponse(msgType MessageType, requestID uint32, payload any) (*Message, error) {
	data, err := Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return NewMessage(msgType, requestID, data), nil
}

// Error codes
const (
	ErrUnknown        = 1000
	ErrInvalidRequest = 1001
	ErrInternalError  = 1002
	ErrNotFound       = 1003
	ErrUnavailable    = 1004
)

// ErrorResponse is the payload for error messages.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorMessage creates an error message.
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{Code: code, Message: message})
	return NewMessage(MsgError, requestID, payload)
}

// EventType identifies daemon event kinds.
type EventType string

const (
	EventCallState      EventType = "call-state-changed"
	EventTargetsChanged EventType = "targets-changed"
	EventDaemonShutdown EventType = "daemon-shutdown"
)

// Event is pushed to subscribed clients.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// HandshakeRequest is sent by clients after connecting.
type HandshakeRequest struct {
	ClientName      string `json:"client_name"`
	ClientVersion   string `json:"client_version"`
	ProtocolVersion uint8  `json:"protocol_version"`
}

// HandshakeResponse acknowledges a handshake.
type HandshakeResponse struct {
	ServerVersion   string `json:"server_version"`
	ProtocolVersion uint8  `json:"protocol_version"`
	SessionID       string `json:"session_id"`
}

// StatusRequest asks for daemon status.
type StatusRequest struct {
	IncludeTargets bool `json:"include_targets,omitempty"`
}

// StatusResponse describes the daemon state.
type StatusResponse struct {
	Version       string            `json:"version"`
	UptimeSec     int64             `json:"uptime_sec"`
	CallState     string            `json:"call_state"`
	ActiveTarget  string            `json:"active_target,omitempty"`
	TargetCount   int               `json:"target_count"`
	Hotkeys       map[string]string `json:"hotkeys,omitempty"`
	SettingsDirty bool              `json:"settings_dirty"`
	Targets       []settings.Target `json:"targets,omitempty"`
}

// JoinRequest starts a call. An empty target ID means the primary target.
type JoinRequest struct {
	TargetID string `json:"target_id,omitempty"`
}

// JoinResponse reports the started call.
type JoinResponse struct {
	TargetID    string `json:"target_id"`
	TargetLabel string `json:"target_label"`
	RoomID      string `json:"room_id"`
	MeetingURL  string `json:"meeting_url"`
}

// HangupRequest ends the active call.
type HangupRequest struct{}

// HangupResponse reports whether a call was actually ended.
type HangupResponse struct {
	WasActive bool `json:"was_active"`
}

// ListTargetsRequest asks for all configured targets.
type ListTargetsRequest struct{}

// ListTargetsResponse carries the configured targets.
type ListTargetsResponse struct {
	Targets []settings.Target `json:"targets"`
}

// AddTargetRequest adds a call target. An empty code asks the daemon to
// generate a fresh pairing code.
type AddTargetRequest struct {
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
	Type  string `json:"type,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// AddTargetResponse returns the stored target.
type AddTargetResponse struct {
	Target settings.Target `json:"target"`
}

// RemoveTargetRequest removes a target by ID.
type RemoveTargetRequest struct {
	ID string `json:"id"`
}

// RemoveTargetResponse reports whether the target existed.
type RemoveTargetResponse struct {
	Removed bool `json:"removed"`
}

// UpdateTargetRequest replaces a target's editable fields.
type UpdateTargetRequest struct {
	Target settings.Target `json:"target"`
}

// UpdateTargetResponse reports the outcome of an update.
type UpdateTargetResponse struct {
	Updated bool             `json:"updated"`
	Target  *settings.Target `json:"target,omitempty"`
}

// SetPrimaryRequest marks a target as primary.
type SetPrimaryRequest struct {
	ID string `json:"id"`
}

// SetPrimaryResponse reports whether the target existed.
type SetPrimaryResponse struct {
	Updated bool `json:"updated"`
}

// GenerateCodeRequest asks for a fresh pairing code.
type GenerateCodeRequest struct{}

// GenerateCodeResponse carries a pairing code and its derived room.
type GenerateCodeResponse struct {
	Code   string `json:"code"`
	RoomID string `json:"room_id"`
}

// DeriveRoomRequest derives the room for an existing pairing code.
type DeriveRoomRequest struct {
	Code string `json:"code"`
}

// DeriveRoomResponse carries the derived room.
type DeriveRoomResponse struct {
	RoomID     string `json:"room_id"`
	MeetingURL string `json:"meeting_url"`
}

// GetSettingsRequest asks for the full settings document.
type GetSettingsRequest struct{}

// GetSettingsResponse carries the settings document.
type GetSettingsResponse struct {
	Settings settings.Settings `json:"settings"`
}

// SetKeybindsRequest replaces the keybind configuration.
type SetKeybindsRequest struct {
	Keybinds settings.Keybinds `json:"keybinds"`
}

// SetKeybindsResponse reports re-registration problems, if any. The
// keybinds are persisted even when some shortcuts failed to register.
type SetKeybindsResponse struct {
	Warnings []string `json:"warnings,omitempty"`
}

// SubscribeRequest subscribes to daemon events. An empty event list
// subscribes to everything.
type SubscribeRequest struct {
	Events []EventType `json:"events,omitempty"`
}

// SubscribeResponse acknowledges a subscription.
type SubscribeResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// UnsubscribeRequest cancels a subscription.
type UnsubscribeRequest struct{}

// GetHistoryRequest asks for recent call log entries.
type GetHistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// GetHistoryResponse carries recent call log entries, newest first.
type GetHistoryResponse struct {
	Calls []history.Call `json:"calls"`
}
