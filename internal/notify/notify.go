// Package notify raises desktop notifications for call lifecycle
// changes. Delivery is best effort: a missing notification service
// degrades to log lines, never to errors in the call path.
package notify

import (
	"justcall/internal/call"
	"justcall/internal/logging"
)

// backend delivers one notification. Platform files provide it.
type backend interface {
	notify(summary, body string) error
	close()
}

// Notifier turns call state changes into desktop notifications. State
// changes are announced under the orchestrator lock, so StateChanged
// only enqueues; a worker goroutine does the actual delivery.
type Notifier struct {
	ch   chan call.State
	done chan struct{}
	b    backend
	log  *logging.Logger
}

// New connects to the platform notification service. When none is
// reachable the notifier still works, it just only logs.
func New() *Notifier {
	log := logging.Default().WithComponent("notify")
	b, err := newBackend()
	if err != nil {
		log.Warn("notification service unavailable", "error", err)
		b = noopBackend{}
	}
	n := &Notifier{
		ch:   make(chan call.State, 16),
		done: make(chan struct{}),
		b:    b,
		log:  log,
	}
	go n.run()
	return n
}

// StateChanged enqueues a notification for the new state. Never blocks;
// when the queue is full the notification is dropped.
func (n *Notifier) StateChanged(st call.State) {
	select {
	case n.ch <- st:
	default:
		n.log.Debug("notification queue full, dropping", "state", st.Tag())
	}
}

// Close stops the delivery worker and releases the service connection.
func (n *Notifier) Close() {
	close(n.done)
}

func (n *Notifier) run() {
	defer n.b.close()
	for {
		select {
		case st := <-n.ch:
			summary, body := message(st)
			if summary == "" {
				continue
			}
			if err := n.b.notify(summary, body); err != nil {
				n.log.Debug("deliver notification", "error", err)
			}
		case <-n.done:
			return
		}
	}
}

// message maps a state to notification text. Idle after a call reads as
// the call ending; the Disconnecting blip is not worth a toast of its
// own.
func message(st call.State) (summary, body string) {
	switch st {
	case call.Connecting:
		return "Calling", "Waiting for the other side to join"
	case call.InCall:
		return "In call", "The other side joined"
	case call.Idle:
		return "Call ended", ""
	default:
		return "", ""
	}
}

type noopBackend struct{}

func (noopBackend) notify(summary, body string) error { return nil }
func (noopBackend) close()                            {}
