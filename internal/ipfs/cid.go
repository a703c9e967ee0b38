package ipfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// CIDv0 layout: base58btc of a sha2-256 multihash (0x12 0x20 + 32 digest bytes).
const (
	cidV0Length     = 46
	multihashSHA256 = 0x12
	sha256Length    = 0x20
)

// ErrInvalidCID is returned when a content identifier is malformed.
var ErrInvalidCID = errors.New("invalid content identifier")

// IsCIDv0 reports whether s looks like a CIDv0 ("Qm..." base58 text).
func IsCIDv0(s string) bool {
	return len(s) == cidV0Length && strings.HasPrefix(s, "Qm")
}

// ValidateCID checks a pinning service identifier. CIDv0 strings must decode
// to a sha2-256 multihash; other identifiers only need to be non-empty and
// free of whitespace.
func ValidateCID(s string) error {
	if s == "" || strings.ContainsAny(s, " \t\r\n/") {
		return fmt.Errorf("%w: %q", ErrInvalidCID, s)
	}
	if !strings.HasPrefix(s, "Qm") {
		return nil
	}
	if len(s) != cidV0Length {
		return fmt.Errorf("%w: CIDv0 length %d", ErrInvalidCID, len(s))
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	if len(raw) != 2+sha256Length || raw[0] != multihashSHA256 || raw[1] != sha256Length {
		return fmt.Errorf("%w: not a sha2-256 multihash", ErrInvalidCID)
	}
	return nil
}
