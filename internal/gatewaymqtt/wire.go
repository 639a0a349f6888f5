package gatewaymqtt

import (
	"bufio"
	"fmt"
	"io"
)

// wireReader consumes length-prefixed fields from an MQTT packet body.
type wireReader []byte

func (w *wireReader) readByte() (byte, error) {
	if len(*w) == 0 {
		return 0, io.EOF
	}
	v := (*w)[0]
	*w = (*w)[1:]
	return v, nil
}

func (w *wireReader) readUint16() (uint16, error) {
	if len(*w) < 2 {
		return 0, io.EOF
	}
	v := uint16((*w)[0])<<8 | uint16((*w)[1])
	*w = (*w)[2:]
	return v, nil
}

func (w *wireReader) readString() (string, error) {
	length, err := w.readUint16()
	if err != nil {
		return "", err
	}
	if len(*w) < int(length) {
		return "", io.ErrUnexpectedEOF
	}
	s := string((*w)[:length])
	*w = (*w)[length:]
	return s, nil
}

// rest returns a copy of everything not yet consumed.
func (w *wireReader) rest() []byte {
	out := make([]byte, len(*w))
	copy(out, *w)
	*w = nil
	return out
}

func (w *wireReader) remaining() int {
	return len(*w)
}

// readRemainingLength decodes the MQTT variable-length remaining-length
// field (up to 4 bytes, 7 bits each).
func readRemainingLength(r *bufio.Reader) (int, error) {
	multiplier := 1
	value := 0
	for i := 0; i < 4; i++ {
		digit, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value += int(digit&127) * multiplier
		if digit&128 == 0 {
			return value, nil
		}
		multiplier *= 128
	}
	return 0, fmt.Errorf("malformed remaining length")
}

func encodeRemainingLength(length int) []byte {
	if length < 0 {
		length = 0
	}

	var encoded []byte
	for {
		digit := byte(length % 128)
		length /= 128
		if length > 0 {
			digit |= 0x80
		}
		encoded = append(encoded, digit)
		if length == 0 {
			break
		}
	}
	return encoded
}
