package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"justcall/internal/settings"
)

// Common client errors.
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrConnectionLost   = errors.New("connection to daemon lost")
	ErrTimeout          = errors.New("request timeout")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// RequestError is a daemon-side failure relayed to the caller.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Client talks to justcalld over its control socket. All request methods
// are safe for concurrent use; responses are matched to requests by id.
type Client struct {
	mu         sync.RWMutex
	conn       net.Conn
	socketPath string
	sessionID  string

	connected atomic.Bool

	pending   map[uint32]chan *Message
	pendingMu sync.Mutex
	nextReqID atomic.Uint32

	eventChan chan *Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	config ClientConfig
}

// ClientConfig configures a Client.
type ClientConfig struct {
	SocketPath     string
	ClientName     string
	ClientVersion  string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(socketPath string) ClientConfig {
	return ClientConfig{
		SocketPath:     socketPath,
		ClientName:     "justcallctl",
		ClientVersion:  "1.0.0",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// NewClient creates a client for the given socket.
func NewClient(cfg ClientConfig) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		socketPath: cfg.SocketPath,
		pending:    make(map[uint32]chan *Message),
		eventChan:  make(chan *Event, 100),
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
	}
}

// Connect dials the daemon socket and performs the handshake.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected.Load() {
		c.mu.Unlock()
		return nil
	}

	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.Dial("unix", c.socketPath)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w (socket %s)", ErrDaemonNotRunning, c.socketPath)
		}
		return fmt.Errorf("connect: %w", err)
	}

	c.conn = conn
	c.connected.Store(true)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop()

	if err := c.handshake(); err != nil {
		c.close()
		return fmt.Errorf("handshake: %w", err)
	}
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.cancel()
	c.close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	close(c.eventChan)
	return nil
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected.Store(false)

	c.pendingMu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = make(map[uint32]chan *Message)
	c.pendingMu.Unlock()
}

// IsConnected reports whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SessionID returns the id the server assigned to this connection.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Events returns the channel carrying daemon events after Subscribe.
func (c *Client) Events() <-chan *Event {
	return c.eventChan
}

func (c *Client) handshake() error {
	req := &HandshakeRequest{
		ClientName:      c.config.ClientName,
		ClientVersion:   c.config.ClientVersion,
		ProtocolVersion: ProtocolVersion,
	}

	resp, err := c.request(MsgHandshake, req)
	if err != nil {
		return err
	}
	if MessageType(resp.Header.Type) != MsgHandshakeAck {
		return fmt.Errorf("unexpected response type: 0x%04x", resp.Header.Type)
	}

	var ack HandshakeResponse
	if err := Decode(resp.Payload, &ack); err != nil {
		return err
	}
	if ack.ProtocolVersion != ProtocolVersion {
		return fmt.Errorf("protocol version mismatch: server speaks %d", ack.ProtocolVersion)
	}

	c.mu.Lock()
	c.sessionID = ack.SessionID
	c.mu.Unlock()
	return nil
}

func (c *Client) request(msgType MessageType, payload any) (*Message, error) {
	return c.requestWithTimeout(msgType, payload, c.config.RequestTimeout)
}

func (c *Client) requestWithTimeout(msgType MessageType, payload any, timeout time.Duration) (*Message, error) {
	if !c.connected.Load() {
		return nil, ErrNotConnected
	}

	data, err := Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	reqID := c.nextReqID.Add(1)
	msg := NewMessage(msgType, reqID, data)

	respChan := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := msg.Write(conn); err != nil {
		c.close()
		return nil, fmt.Errorf("write message: %w", err)
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, ErrConnectionLost
		}
		return resp, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		msg, err := ReadMessage(conn)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.sendPing()
				continue
			}
			c.close()
			return
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch MessageType(msg.Header.Type) {
	case MsgPong:
		// Keepalive answer, nothing to do.

	case MsgPing:
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			pong := NewMessage(MsgPong, msg.Header.RequestID, nil)
			pong.Write(conn)
		}

	case MsgEvent:
		var event Event
		if err := Decode(msg.Payload, &event); err == nil {
			select {
			case c.eventChan <- &event:
			default:
				// Channel full, drop event.
			}
		}

	default:
		c.pendingMu.Lock()
		if ch, ok := c.pending[msg.Header.RequestID]; ok {
			select {
			case ch <- msg:
			default:
			}
		}
		c.pendingMu.Unlock()
	}
}

func (c *Client) sendPing() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		msg := NewMessage(MsgPing, c.nextReqID.Add(1), nil)
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		msg.Write(conn)
	}
}

// call sends a request and decodes the typed response, unwrapping
// daemon-side errors into RequestError.
func (c *Client) call(reqType, respType MessageType, req, out any) error {
	resp, err := c.request(reqType, req)
	if err != nil {
		return err
	}

	if MessageType(resp.Header.Type) == MsgError {
		var errResp ErrorResponse
		if err := Decode(resp.Payload, &errResp); err != nil {
			return fmt.Errorf("malformed error response: %w", err)
		}
		return &RequestError{Code: errResp.Code, Message: errResp.Message}
	}
	if MessageType(resp.Header.Type) != respType {
		return fmt.Errorf("unexpected response type: 0x%04x", resp.Header.Type)
	}
	if out == nil {
		return nil
	}
	return Decode(resp.Payload, out)
}

// Ping checks if the daemon is responsive.
func (c *Client) Ping() error {
	resp, err := c.requestWithTimeout(MsgPing, nil, 5*time.Second)
	if err != nil {
		return err
	}
	if MessageType(resp.Header.Type) != MsgPong {
		return fmt.Errorf("unexpected response: 0x%04x", resp.Header.Type)
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status(includeTargets bool) (*StatusResponse, error) {
	var out StatusResponse
	err := c.call(MsgStatusRequest, MsgStatusResponse, &StatusRequest{IncludeTargets: includeTargets}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Join starts a call. An empty target id calls the primary target.
func (c *Client) Join(targetID string) (*JoinResponse, error) {
	var out JoinResponse
	err := c.call(MsgJoin, MsgJoinResp, &JoinRequest{TargetID: targetID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Hangup ends the active call.
func (c *Client) Hangup() (*HangupResponse, error) {
	var out HangupResponse
	err := c.call(MsgHangup, MsgHangupResp, &HangupRequest{}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Targets lists the configured call targets.
func (c *Client) Targets() ([]settings.Target, error) {
	var out ListTargetsResponse
	err := c.call(MsgListTargets, MsgListTargetsResp, &ListTargetsRequest{}, &out)
	if err != nil {
		return nil, err
	}
	return out.Targets, nil
}

// AddTarget adds a call target.
func (c *Client) AddTarget(req *AddTargetRequest) (*AddTargetResponse, error) {
	var out AddTargetResponse
	if err := c.call(MsgAddTarget, MsgAddTargetResp, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveTarget removes a target by id.
func (c *Client) RemoveTarget(id string) (bool, error) {
	var out RemoveTargetResponse
	err := c.call(MsgRemoveTarget, MsgRemoveTargetResp, &RemoveTargetRequest{ID: id}, &out)
	if err != nil {
		return false, err
	}
	return out.Removed, nil
}

// UpdateTarget replaces a target's editable fields.
func (c *Client) UpdateTarget(t settings.Target) (*UpdateTargetResponse, error) {
	var out UpdateTargetResponse
	err := c.call(MsgUpdateTarget, MsgUpdateTargetResp, &UpdateTargetRequest{Target: t}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPrimary marks a target primary.
func (c *Client) SetPrimary(id string) (bool, error) {
	var out SetPrimaryResponse
	err := c.call(MsgSetPrimary, MsgSetPrimaryResp, &SetPrimaryRequest{ID: id}, &out)
	if err != nil {
		return false, err
	}
	return out.Updated, nil
}

// GenerateCode asks the daemon for a fresh pairing code.
func (c *Client) GenerateCode() (*GenerateCodeResponse, error) {
	var out GenerateCodeResponse
	err := c.call(MsgGenerateCode, MsgGenerateCodeResp, &GenerateCodeRequest{}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeriveRoom derives the room for a pairing code.
func (c *Client) DeriveRoom(code string) (*DeriveRoomResponse, error) {
	var out DeriveRoomResponse
	err := c.call(MsgDeriveRoom, MsgDeriveRoomResp, &DeriveRoomRequest{Code: code}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings fetches the full settings document.
func (c *Client) Settings() (*settings.Settings, error) {
	var out GetSettingsResponse
	err := c.call(MsgGetSettings, MsgGetSettingsResp, &GetSettingsRequest{}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Settings, nil
}

// SetKeybinds replaces the keybind configuration.
func (c *Client) SetKeybinds(kb settings.Keybinds) (*SetKeybindsResponse, error) {
	var out SetKeybindsResponse
	err := c.call(MsgSetKeybinds, MsgSetKeybindsResp, &SetKeybindsRequest{Keybinds: kb}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches recent call log entries.
func (c *Client) History(limit int) (*GetHistoryResponse, error) {
	var out GetHistoryResponse
	err := c.call(MsgGetHistory, MsgGetHistoryResp, &GetHistoryRequest{Limit: limit}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscribe subscribes to daemon events; they arrive on Events().
func (c *Client) Subscribe(events []EventType) error {
	var out SubscribeResponse
	err := c.call(MsgSubscribe, MsgSubscribeResp, &SubscribeRequest{Events: events}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		return errors.New("subscription failed")
	}
	return nil
}

// Unsubscribe cancels the event subscription.
func (c *Client) Unsubscribe() error {
	return c.call(MsgUnsubscribe, MsgUnsubscribeResp, &UnsubscribeRequest{}, nil)
}
