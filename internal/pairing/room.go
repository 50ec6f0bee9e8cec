package pairing

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
)

const (
	// roomPrefix marks derived identifiers so they are recognizable in
	// meeting URLs and logs.
	roomPrefix = "jc-"

	// domainSep is the domain-separation tag hashed ahead of the code.
	// Changing it changes every derived room id, so it is versioned.
	domainSep = "justcall-v1|"

	roomSymbols = 16
)

// lowerBase32 is RFC 4648 base32 with a lowercase alphabet and no
// padding, shared by pairing codes and room ids.
var lowerBase32 = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// RoomID derives the public meeting-room identifier for a pairing code.
// Dashes in the code are ignored, so the formatted and the stripped form
// address the same room. The result is always 19 characters: "jc-"
// followed by the first 16 base32 symbols of a SHA-256 digest.
func RoomID(code string) string {
	stripped := strings.ReplaceAll(code, "-", "")
	sum := sha256.Sum256([]byte(domainSep + stripped))
	return roomPrefix + lowerBase32.EncodeToString(sum[:])[:roomSymbols]
}
