package pairing

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	code, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(code) != CodeLength {
		t.Errorf("code length = %d, want %d (%q)", len(code), CodeLength, code)
	}
	for _, pos := range []int{4, 9, 14, 19} {
		if code[pos] != '-' {
			t.Errorf("expected dash at index %d in %q", pos, code)
		}
	}
	for i, r := range code {
		if i == 4 || i == 9 || i == 14 || i == 19 {
			continue
		}
		ok := (r >= 'a' && r <= 'z') || (r >= '2' && r <= '7')
		if !ok {
			t.Errorf("symbol %q at index %d outside base32 alphabet in %q", r, i, code)
		}
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code after %d generations: %q", i, code)
		}
		seen[code] = true
	}
}

func TestRoomIDDeterministic(t *testing.T) {
	code := "abcd-efgh-ijkl-mnop-qrst"
	first := RoomID(code)
	for i := 0; i < 10; i++ {
		if got := RoomID(code); got != first {
			t.Fatalf("RoomID not deterministic: %q vs %q", got, first)
		}
	}
}

func TestRoomIDIgnoresDashes(t *testing.T) {
	formatted := "abcd-efgh-ijkl-mnop-qrst"
	stripped := "abcdefghijklmnopqrst"
	if a, b := RoomID(formatted), RoomID(stripped); a != b {
		t.Errorf("formatted and stripped codes derived different rooms: %q vs %q", a, b)
	}
}

func TestRoomIDShape(t *testing.T) {
	for _, code := range []string{"", "a", "abcd-efgh-ijkl-mnop-qrst"} {
		id := RoomID(code)
		if len(id) != 19 {
			t.Errorf("RoomID(%q) length = %d, want 19", code, len(id))
		}
		if !strings.HasPrefix(id, "jc-") {
			t.Errorf("RoomID(%q) = %q, want jc- prefix", code, id)
		}
		for _, r := range id[3:] {
			ok := (r >= 'a' && r <= 'z') || (r >= '2' && r <= '7')
			if !ok {
				t.Errorf("RoomID(%q) symbol %q outside base32 alphabet", code, r)
			}
		}
	}
}

func TestRoomIDDiffusion(t *testing.T) {
	a := RoomID("abcd-efgh-ijkl-mnop-qrst")
	b := RoomID("abcd-efgh-ijkl-mnop-qrsu")
	if a == b {
		t.Error("distinct codes derived the same room id")
	}
}

func TestGeneratedCodesDeriveDistinctRooms(t *testing.T) {
	c1, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	c2, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	if RoomID(c1) == RoomID(c2) {
		t.Errorf("codes %q and %q mapped to the same room", c1, c2)
	}
}
