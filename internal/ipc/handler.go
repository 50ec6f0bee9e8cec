package ipc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"justcall/internal/call"
	"justcall/internal/history"
	"justcall/internal/hotkey"
	"justcall/internal/logging"
	"justcall/internal/pairing"
	"justcall/internal/settings"
)

// Broadcaster pushes events to subscribed clients. *Server satisfies it.
type Broadcaster interface {
	Broadcast(event *Event)
}

// DaemonHandler serves control requests against the live daemon state.
// Registry and History are optional; requests touching a missing
// subsystem answer with ErrUnavailable.
type DaemonHandler struct {
	store     *settings.Store
	orch      *call.Orchestrator
	registry  *hotkey.Registry
	hist      *history.Store
	host      string
	version   string
	startedAt time.Time
	broadcast Broadcaster
	log       *logging.Logger
}

// HandlerConfig wires a DaemonHandler.
type HandlerConfig struct {
	Store    *settings.Store
	Orch     *call.Orchestrator
	Registry *hotkey.Registry
	History  *history.Store
	Host     string
	Version  string
}

// NewDaemonHandler creates the daemon-side message handler.
func NewDaemonHandler(cfg HandlerConfig) *DaemonHandler {
	return &DaemonHandler{
		store:     cfg.Store,
		orch:      cfg.Orch,
		registry:  cfg.Registry,
		hist:      cfg.History,
		host:      cfg.Host,
		version:   cfg.Version,
		startedAt: time.Now(),
		log:       logging.Default().WithComponent("ipc-handler"),
	}
}

// SetBroadcaster attaches the event broadcaster. Must be called before
// the server starts accepting connections; a handler with no
// broadcaster leaves mutations unannounced.
func (h *DaemonHandler) SetBroadcaster(b Broadcaster) {
	h.broadcast = b
}

// HandleMessage dispatches a request to the matching operation.
func (h *DaemonHandler) HandleMessage(ctx context.Context, conn *ClientConn, msg *Message) (*Message, error) {
	reqID := msg.Header.RequestID

	switch MessageType(msg.Header.Type) {
	case MsgStatusRequest:
		return h.handleStatus(reqID, msg.Payload)
	case MsgJoin:
		return h.handleJoin(reqID, msg.Payload)
	case MsgHangup:
		return h.handleHangup(reqID)
	case MsgListTargets:
		return NewResponse(MsgListTargetsResp, reqID, &ListTargetsResponse{Targets: h.store.Targets()})
	case MsgAddTarget:
		return h.handleAddTarget(reqID, msg.Payload)
	case MsgRemoveTarget:
		return h.handleRemoveTarget(reqID, msg.Payload)
	case MsgUpdateTarget:
		return h.handleUpdateTarget(reqID, msg.Payload)
	case MsgSetPrimary:
		return h.handleSetPrimary(reqID, msg.Payload)
	case MsgGenerateCode:
		return h.handleGenerateCode(reqID)
	case MsgDeriveRoom:
		return h.handleDeriveRoom(reqID, msg.Payload)
	case MsgGetSettings:
		return NewResponse(MsgGetSettingsResp, reqID, &GetSettingsResponse{Settings: h.store.Settings()})
	case MsgSetKeybinds:
		return h.handleSetKeybinds(reqID, msg.Payload)
	case MsgGetHistory:
		return h.handleGetHistory(reqID, msg.Payload)
	default:
		return NewErrorMessage(reqID, ErrInvalidRequest, fmt.Sprintf("unknown message type: 0x%04x", msg.Header.Type)), nil
	}
}

func (h *DaemonHandler) handleStatus(reqID uint32, payload []byte) (*Message, error) {
	var req StatusRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid status request"), nil
	}

	resp := &StatusResponse{
		Version:       h.version,
		UptimeSec:     int64(time.Since(h.startedAt).Seconds()),
		CallState:     h.orch.State().Tag(),
		TargetCount:   len(h.store.Targets()),
		SettingsDirty: h.store.Dirty(),
	}
	if id, ok := h.orch.ActiveTarget(); ok {
		resp.ActiveTarget = id
	}
	if h.registry != nil {
		resp.Hotkeys = h.registry.Bindings()
	}
	if req.IncludeTargets {
		resp.Targets = h.store.Targets()
	}

	return NewResponse(MsgStatusResponse, reqID, resp)
}

func (h *DaemonHandler) handleJoin(reqID uint32, payload []byte) (*Message, error) {
	var req JoinRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid join request"), nil
	}

	var (
		target settings.Target
		ok     bool
	)
	if req.TargetID == "" {
		target, ok = h.store.PrimaryTarget()
		if !ok {
			return NewErrorMessage(reqID, ErrNotFound, "no primary target configured"), nil
		}
	} else {
		target, ok = h.store.Target(req.TargetID)
		if !ok {
			return NewErrorMessage(reqID, ErrNotFound, "target not found: "+req.TargetID), nil
		}
	}

	if err := h.orch.Join(target.ID); err != nil {
		code := ErrInternalError
		if errors.Is(err, call.ErrInvalidTransition) {
			code = ErrInvalidRequest
		}
		return NewErrorMessage(reqID, code, err.Error()), nil
	}

	roomID := pairing.RoomID(target.Code)
	resp := &JoinResponse{
		TargetID:    target.ID,
		TargetLabel: target.Label,
		RoomID:      roomID,
		MeetingURL:  h.meetingURL(roomID),
	}
	return NewResponse(MsgJoinResp, reqID, resp)
}

func (h *DaemonHandler) handleHangup(reqID uint32) (*Message, error) {
	wasActive := h.orch.State() != call.Idle
	if err := h.orch.Hangup(); err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}
	return NewResponse(MsgHangupResp, reqID, &HangupResponse{WasActive: wasActive})
}

func (h *DaemonHandler) handleAddTarget(reqID uint32, payload []byte) (*Message, error) {
	var req AddTargetRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid add-target request"), nil
	}
	if req.Label == "" {
		return NewErrorMessage(reqID, ErrInvalidRequest, "target label must not be empty"), nil
	}

	code := req.Code
	if code == "" {
		generated, err := pairing.Generate()
		if err != nil {
			return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
		}
		code = generated
	}

	typ := settings.TargetType(req.Type)
	if typ == "" {
		typ = settings.TargetPerson
	}
	switch typ {
	case settings.TargetPerson, settings.TargetGroup:
	default:
		return NewErrorMessage(reqID, ErrInvalidRequest, "unknown target type: "+req.Type), nil
	}

	target := settings.NewTarget(req.Label, code, typ)
	target.Notes = req.Notes
	if err := h.store.AddTarget(target); err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}

	// The stored copy may have been promoted to primary.
	stored, _ := h.store.Target(target.ID)
	h.announceTargets()
	return NewResponse(MsgAddTargetResp, reqID, &AddTargetResponse{Target: stored})
}

func (h *DaemonHandler) handleRemoveTarget(reqID uint32, payload []byte) (*Message, error) {
	var req RemoveTargetRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid remove-target request"), nil
	}

	removed, err := h.store.RemoveTarget(req.ID)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}
	if removed {
		h.announceTargets()
	}
	return NewResponse(MsgRemoveTargetResp, reqID, &RemoveTargetResponse{Removed: removed})
}

func (h *DaemonHandler) handleUpdateTarget(reqID uint32, payload []byte) (*Message, error) {
	var req UpdateTargetRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid update-target request"), nil
	}

	updated, err := h.store.UpdateTarget(req.Target)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}

	resp := &UpdateTargetResponse{Updated: updated}
	if updated {
		stored, _ := h.store.Target(req.Target.ID)
		resp.Target = &stored
		h.announceTargets()
	}
	return NewResponse(MsgUpdateTargetResp, reqID, resp)
}

func (h *DaemonHandler) handleSetPrimary(reqID uint32, payload []byte) (*Message, error) {
	var req SetPrimaryRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid set-primary request"), nil
	}

	if err := h.store.SetPrimary(req.ID); err != nil {
		if errors.Is(err, settings.ErrTargetNotFound) {
			return NewResponse(MsgSetPrimaryResp, reqID, &SetPrimaryResponse{Updated: false})
		}
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}
	h.announceTargets()
	return NewResponse(MsgSetPrimaryResp, reqID, &SetPrimaryResponse{Updated: true})
}

func (h *DaemonHandler) handleGenerateCode(reqID uint32) (*Message, error) {
	code, err := pairing.Generate()
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}
	resp := &GenerateCodeResponse{
		Code:   code,
		RoomID: pairing.RoomID(code),
	}
	return NewResponse(MsgGenerateCodeResp, reqID, resp)
}

func (h *DaemonHandler) handleDeriveRoom(reqID uint32, payload []byte) (*Message, error) {
	var req DeriveRoomRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid derive-room request"), nil
	}
	if req.Code == "" {
		return NewErrorMessage(reqID, ErrInvalidRequest, "pairing code must not be empty"), nil
	}

	roomID := pairing.RoomID(req.Code)
	resp := &DeriveRoomResponse{
		RoomID:     roomID,
		MeetingURL: h.meetingURL(roomID),
	}
	return NewResponse(MsgDeriveRoomResp, reqID, resp)
}

// handleSetKeybinds persists the new bindings first, then re-registers
// shortcuts. Registration failures are reported as warnings rather than
// rolling back the document; the bindings take full effect on restart.
func (h *DaemonHandler) handleSetKeybinds(reqID uint32, payload []byte) (*Message, error) {
	var req SetKeybindsRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid set-keybinds request"), nil
	}
	if req.Keybinds.JoinPrimary == "" || req.Keybinds.Hangup == "" {
		return NewErrorMessage(reqID, ErrInvalidRequest, "join_primary and hangup keybinds are required"), nil
	}

	if err := h.store.SetKeybinds(req.Keybinds); err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}

	resp := &SetKeybindsResponse{}
	if h.registry != nil {
		h.registry.UnregisterAll()
		if err := h.registry.SetupDefaults(req.Keybinds.JoinPrimary, req.Keybinds.Hangup); err != nil {
			resp.Warnings = append(resp.Warnings, err.Error())
		}
		for targetID, combo := range req.Keybinds.TargetHotkeys {
			if combo == "" {
				continue
			}
			if err := h.registry.Register(combo, hotkey.JoinTarget(targetID)); err != nil {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("target %s: %v", targetID, err))
			}
		}
	}

	return NewResponse(MsgSetKeybindsResp, reqID, resp)
}

func (h *DaemonHandler) handleGetHistory(reqID uint32, payload []byte) (*Message, error) {
	if h.hist == nil {
		return NewErrorMessage(reqID, ErrUnavailable, "call history is disabled"), nil
	}

	var req GetHistoryRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, "invalid history request"), nil
	}

	calls, err := h.hist.Recent(req.Limit)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error()), nil
	}
	return NewResponse(MsgGetHistoryResp, reqID, &GetHistoryResponse{Calls: calls})
}

func (h *DaemonHandler) meetingURL(roomID string) string {
	return "https://" + h.host + "/" + roomID
}

func (h *DaemonHandler) announceTargets() {
	if h.broadcast == nil {
		return
	}
	h.broadcast.Broadcast(&Event{
		Type:      EventTargetsChanged,
		Timestamp: time.Now().UTC(),
	})
}
