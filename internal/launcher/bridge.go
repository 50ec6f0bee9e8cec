package launcher

import (
	"justcall/internal/call"
	"justcall/internal/logging"
)

// WindowEvent is a conference-window lifecycle event.
type WindowEvent uint8

const (
	// EventRemoteJoined fires when the other side enters the room.
	EventRemoteJoined WindowEvent = iota + 1
	// EventRemoteLeft fires when the other side leaves the room.
	EventRemoteLeft
)

// Window is an embedded conference window. Implementations live outside
// this module; the daemon only needs open, close and a lifecycle feed.
type Window interface {
	Open(spec call.LaunchSpec) error
	Close()
	Events() <-chan WindowEvent
}

// Bridge adapts an embedded conference window to the orchestrator's
// launcher contract and pumps the window's lifecycle events into the
// remote-presence callbacks. Unlike the Browser path, this path can
// observe the other side joining and leaving.
type Bridge struct {
	win      Window
	onJoined func()
	onLeft   func()
	done     chan struct{}
	log      *logging.Logger
}

// NewBridge starts pumping window events into the callbacks. Stop ends
// the pump; the window outliving its bridge only talks to the void.
func NewBridge(win Window, onJoined, onLeft func()) *Bridge {
	b := &Bridge{
		win:      win,
		onJoined: onJoined,
		onLeft:   onLeft,
		done:     make(chan struct{}),
		log:      logging.Default().WithComponent("launcher"),
	}
	go b.pump()
	return b
}

func (b *Bridge) pump() {
	for {
		select {
		case ev, ok := <-b.win.Events():
			if !ok {
				return
			}
			switch ev {
			case EventRemoteJoined:
				b.onJoined()
			case EventRemoteLeft:
				b.onLeft()
			default:
				b.log.Debug("unknown window event", "event", ev)
			}
		case <-b.done:
			return
		}
	}
}

// Open forwards to the window.
func (b *Bridge) Open(spec call.LaunchSpec) error {
	return b.win.Open(spec)
}

// Close forwards to the window.
func (b *Bridge) Close() {
	b.win.Close()
}

// Stop ends the event pump. The window is closed separately.
func (b *Bridge) Stop() {
	close(b.done)
}
