// Package pairing implements the shared-secret pairing scheme: the
// human-exchangeable pairing code and the meeting-room identifier both
// partners derive from it.
package pairing

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeLength is the formatted length of a pairing code: five groups of
// four symbols separated by dashes.
const CodeLength = 24

// codeSymbols is the number of base32 symbols kept from the encoded
// entropy, 100 bits worth.
const codeSymbols = 20

// Generate returns a fresh pairing code formatted as
// "xxxx-xxxx-xxxx-xxxx-xxxx". Symbols come from the lowercase RFC 4648
// base32 alphabet (a-z, 2-7), which avoids 0/1/8/9 and survives being
// read aloud. Fails if the OS random source does; there is no fallback.
func Generate() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random source: %w", err)
	}
	enc := lowerBase32.EncodeToString(raw[:])[:codeSymbols]

	groups := make([]string, 0, 5)
	for i := 0; i < codeSymbols; i += 4 {
		groups = append(groups, enc[i:i+4])
	}
	return strings.Join(groups, "-"), nil
}
