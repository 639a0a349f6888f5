// Package mac provides pure utilities for BLE tag MAC addresses: parsing
// into the canonical AA:BB:CC:DD:EE:FF form plus a few derivations on the
// first octet.
package mac

import (
	"fmt"
	"strings"
)

const hexLength = 12

// InvalidMACError reports an input that could not be normalized. Length is
// the number of characters left after stripping separators, or -1 when the
// failure was not about length.
type InvalidMACError struct {
	Input  string
	Length int
	Reason string
}

func (e *InvalidMACError) Error() string {
	return fmt.Sprintf("invalid mac address %q: %s", e.Input, e.Reason)
}

// Normalize converts a MAC address in any common layout (colon, hyphen, dot,
// or bare hex, any case) to uppercase colon-separated form. It is idempotent:
// an already-normalized address comes back unchanged.
func Normalize(address string) (string, error) {
	if address == "" {
		return "", &InvalidMACError{Input: address, Length: -1, Reason: "empty"}
	}

	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ', '\t':
			return -1
		}
		return r
	}, address)
	stripped = strings.ToUpper(stripped)

	if len(stripped) != hexLength {
		return "", &InvalidMACError{
			Input:  address,
			Length: len(stripped),
			Reason: fmt.Sprintf("must be %d hex characters, got %d", hexLength, len(stripped)),
		}
	}

	for _, r := range stripped {
		if !isHex(r) {
			return "", &InvalidMACError{Input: address, Length: -1, Reason: "non-hex characters"}
		}
	}

	var b strings.Builder
	b.Grow(hexLength + hexLength/2 - 1)
	for i := 0; i < hexLength; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(stripped[i : i+2])
	}
	return b.String(), nil
}

// IsValid reports whether the address normalizes without error.
func IsValid(address string) bool {
	_, err := Normalize(address)
	return err == nil
}

// IsMulticast reports whether the multicast bit (least significant bit of the
// first octet) is set. Invalid input yields false.
func IsMulticast(address string) bool {
	octet, ok := firstOctet(address)
	return ok && octet&0x01 != 0
}

// IsLocallyAdministered reports whether the locally-administered bit of the
// first octet is set. Invalid input yields false.
func IsLocallyAdministered(address string) bool {
	octet, ok := firstOctet(address)
	return ok && octet&0x02 != 0
}

// ouiManufacturers maps well-known OUI prefixes to vendor names. A real
// deployment would swap this for a full OUI database.
var ouiManufacturers = map[string]string{
	"AA:BB:CC": "Example Medical Devices Inc.",
	"00:0C:29": "VMware Virtual MAC",
	"00:50:56": "VMware Virtual MAC",
	"00:1A:11": "Google",
	"00:1B:63": "Apple",
	"00:1D:4F": "Cisco",
	"00:24:D4": "Samsung",
}

// Manufacturer resolves the vendor for the address's OUI prefix, returning
// "unknown" for unmatched prefixes or invalid input.
func Manufacturer(address string) string {
	normalized, err := Normalize(address)
	if err != nil {
		return "unknown"
	}
	if name, ok := ouiManufacturers[normalized[:8]]; ok {
		return name
	}
	return "unknown"
}

func firstOctet(address string) (byte, bool) {
	normalized, err := Normalize(address)
	if err != nil {
		return 0, false
	}
	return hexVal(normalized[0])<<4 | hexVal(normalized[1]), true
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')
}

func hexVal(c byte) byte {
	if c >= 'A' {
		return c - 'A' + 10
	}
	return c - '0'
}
