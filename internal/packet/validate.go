// Package packet validates raw gateway reports field by field before they
// reach the ingestion pipeline. Validation fails fast on the first bad field
// and never writes anything.
package packet

import (
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/model"
)

// InvalidRSSIError reports a missing or non-integral RSSI value.
type InvalidRSSIError struct {
	Value any
}

func (e *InvalidRSSIError) Error() string {
	if e.Value == nil {
		return "invalid rssi: missing"
	}
	return fmt.Sprintf("invalid rssi %v: must be an integer", e.Value)
}

// InvalidTimestampError reports a timestamp that matched no accepted form.
type InvalidTimestampError struct {
	Value any
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("cannot parse timestamp %v", e.Value)
}

// InvalidGatewayIPError reports a gateway address that is not an IPv4 or
// IPv6 literal.
type InvalidGatewayIPError struct {
	Value string
}

func (e *InvalidGatewayIPError) Error() string {
	return fmt.Sprintf("invalid gateway ip %q", e.Value)
}

// Validated is a packet with every field checked and coerced.
type Validated struct {
	MAC       string
	RSSI      int
	Timestamp time.Time
	GatewayIP string // empty when the source is unknown
}

// Fallback layouts tried, in order, after the ISO forms. These mirror the
// formats gateways have historically sent.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02-01-2006 15:04:05",
}

// Validate checks a raw packet. now supplies the effective timestamp when the
// packet carries none.
func Validate(raw model.RawPacket, now time.Time) (Validated, error) {
	normalized, err := mac.Normalize(raw.MAC)
	if err != nil {
		return Validated{}, err
	}

	rssi, err := ValidateRSSI(raw.RSSI)
	if err != nil {
		return Validated{}, err
	}

	ts, err := ResolveTimestamp(raw.Timestamp, now)
	if err != nil {
		return Validated{}, err
	}

	gatewayIP, err := ValidateGatewayIP(raw.GatewayIP)
	if err != nil {
		return Validated{}, err
	}

	return Validated{MAC: normalized, RSSI: rssi, Timestamp: ts, GatewayIP: gatewayIP}, nil
}

// ValidateRSSI accepts any integral value. JSON numbers arrive as float64,
// so whole floats pass; anything fractional or non-numeric does not. No
// range is enforced.
func ValidateRSSI(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &InvalidRSSIError{Value: value}
		}
		return int(v), nil
	case float32:
		f := float64(v)
		if f != math.Trunc(f) {
			return 0, &InvalidRSSIError{Value: value}
		}
		return int(f), nil
	default:
		return 0, &InvalidRSSIError{Value: value}
	}
}

// ResolveTimestamp coerces a timestamp of any accepted shape to UTC. A nil
// value resolves to now. Strings try strict ISO-8601 first (trailing "Z"
// accepted as UTC), then the fixed fallback layouts. Naive values are taken
// as UTC.
func ResolveTimestamp(value any, now time.Time) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return now.UTC(), nil
	case time.Time:
		return v.UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	case string:
		return parseTimestampString(v)
	default:
		return time.Time{}, &InvalidTimestampError{Value: value}
	}
}

func parseTimestampString(value string) (time.Time, error) {
	isoLayouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999", // naive ISO, assumed UTC
		"2006-01-02T15:04:05",
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}

	for _, layout := range fallbackLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}

	return time.Time{}, &InvalidTimestampError{Value: value}
}

// ValidateGatewayIP accepts an empty value (unknown source) or any IPv4/IPv6
// literal.
func ValidateGatewayIP(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}
	if net.ParseIP(trimmed) == nil {
		return "", &InvalidGatewayIPError{Value: value}
	}
	return trimmed, nil
}
