package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is wrapped when an action string carries a tag the
// dispatcher does not know. Unknown tags fail loudly so a typo in a
// settings file cannot silently bind a shortcut to nothing.
var ErrUnknownAction = errors.New("unknown shortcut action")

// ActionKind enumerates what a fired shortcut does.
type ActionKind uint8

const (
	ActionJoinPrimary ActionKind = iota + 1
	ActionJoinTarget
	ActionHangup
)

// Action is the decoded meaning of a fired shortcut. JoinTarget carries
// the target id; the other kinds stand alone.
type Action struct {
	Kind     ActionKind
	TargetID string
}

// JoinPrimary calls the primary target.
func JoinPrimary() Action { return Action{Kind: ActionJoinPrimary} }

// JoinTarget calls a specific target.
func JoinTarget(id string) Action { return Action{Kind: ActionJoinTarget, TargetID: id} }

// Hangup ends or cancels the current call.
func Hangup() Action { return Action{Kind: ActionHangup} }

// String renders the action in its text form: "join-primary",
// "join-target:<id>" or "hangup".
func (a Action) String() string {
	switch a.Kind {
	case ActionJoinPrimary:
		return "join-primary"
	case ActionJoinTarget:
		return "join-target:" + a.TargetID
	case ActionHangup:
		return "hangup"
	default:
		return fmt.Sprintf("action(%d)", a.Kind)
	}
}

// ParseAction parses the text form produced by String.
func ParseAction(s string) (Action, error) {
	switch {
	case s == "join-primary":
		return JoinPrimary(), nil
	case s == "hangup":
		return Hangup(), nil
	case strings.HasPrefix(s, "join-target:"):
		id := strings.TrimPrefix(s, "join-target:")
		if id == "" {
			return Action{}, fmt.Errorf("%w: join-target without target id", ErrUnknownAction)
		}
		return JoinTarget(id), nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}
