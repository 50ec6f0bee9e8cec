package hotkey

import (
	"errors"
	"testing"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Ctrl+Shift+J", want: "Ctrl+Shift+J"},
		{in: "ctrl+shift+j", want: "Ctrl+Shift+J"},
		{in: "Shift+Ctrl+J", want: "Ctrl+Shift+J"},
		{in: "Cmd+Shift+H", want: "Cmd+Shift+H"},
		{in: "super+k", want: "Cmd+K"},
		{in: "option+space", want: "Alt+Space"},
		{in: "Ctrl+Alt+Enter", want: "Ctrl+Alt+Enter"},
		{in: "Ctrl+9", want: "Ctrl+9"},
		{in: "J", wantErr: true},
		{in: "", wantErr: true},
		{in: "Ctrl+", wantErr: true},
		{in: "+J", wantErr: true},
		{in: "Hyper+J", wantErr: true},
		{in: "Ctrl+Ctrl+J", wantErr: true},
		{in: "Ctrl+Control+J", wantErr: true},
		{in: "Ctrl+Banana", wantErr: true},
	}
	for _, tc := range tests {
		c, err := ParseCombo(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCombo(%q) = %v, want error", tc.in, c)
			} else if !errors.Is(err, ErrInvalidCombo) {
				t.Errorf("ParseCombo(%q) error %v not ErrInvalidCombo", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCombo(%q) error: %v", tc.in, err)
			continue
		}
		if got := c.String(); got != tc.want {
			t.Errorf("ParseCombo(%q).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizedMatchesAcrossCase(t *testing.T) {
	a, err := ParseCombo("ctrl+shift+j")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseCombo("Shift+Ctrl+J")
	if err != nil {
		t.Fatal(err)
	}
	if a.Normalized() != b.Normalized() {
		t.Errorf("equivalent combos normalized differently: %q vs %q", a.Normalized(), b.Normalized())
	}
}

func TestParseActionRoundTrip(t *testing.T) {
	for _, a := range []Action{JoinPrimary(), Hangup(), JoinTarget("t-42")} {
		parsed, err := ParseAction(a.String())
		if err != nil {
			t.Errorf("ParseAction(%q): %v", a.String(), err)
			continue
		}
		if parsed != a {
			t.Errorf("ParseAction(%q) = %+v, want %+v", a.String(), parsed, a)
		}
	}
}

func TestParseActionUnknownTag(t *testing.T) {
	for _, s := range []string{"", "mute", "join-target:", "Join-Primary"} {
		if _, err := ParseAction(s); !errors.Is(err, ErrUnknownAction) {
			t.Errorf("ParseAction(%q) error = %v, want ErrUnknownAction", s, err)
		}
	}
}
