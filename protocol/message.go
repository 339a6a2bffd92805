package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// envelopeOverhead is the fixed-size portion of a framed message: the
// 2-byte zero tag, 2-byte id, 1-byte counter, 2-byte length, and 2-byte
// trailing CRC.
const envelopeOverhead = 2 + 2 + 1 + 2 + 2

// ErrDataTooLarge is returned by Serialize when data exceeds the 16-bit
// length field.
var ErrDataTooLarge = errors.New("protocol: message data exceeds 65535 bytes")

// ErrShortEnvelope is returned by Parse when b is too small to hold a
// complete envelope, or the data field runs past the end of b.
var ErrShortEnvelope = errors.New("protocol: envelope is too short")

// ErrBadTag is returned by Parse when the leading two-byte tag isn't the
// literal 0x00 0x00 every control envelope carries.
var ErrBadTag = errors.New("protocol: envelope tag mismatch")

// ErrChecksumMismatch is returned by Parse when the trailing CRC doesn't
// match the recomputed checksum of the envelope.
var ErrChecksumMismatch = errors.New("protocol: checksum mismatch")

// Message is the parsed form of a control envelope (spec.md §3). It is
// produced fresh on every receive and consumed immediately; nothing
// retains a Message across dispatch.
type Message struct {
	ID      uint16
	Counter uint8
	Data    []byte
}

// Serialize frames id, counter and data into the on-wire envelope:
// [00 00][id LE16][counter][len LE16][data][crc LE16].
func Serialize(id uint16, counter uint8, data []byte) ([]byte, error) {
	if len(data) > 0xFFFF {
		return nil, ErrDataTooLarge
	}

	out := make([]byte, envelopeOverhead-2+len(data))
	out[0], out[1] = 0x00, 0x00
	binary.LittleEndian.PutUint16(out[2:4], id)
	out[4] = counter
	binary.LittleEndian.PutUint16(out[5:7], uint16(len(data)))
	copy(out[7:], data)

	crc := checksum(out)
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	return append(out, crcBytes...), nil
}

// Parse consumes one framed control envelope off the front of b and
// returns the unconsumed remainder alongside the decoded Message. A
// parse failure leaves b untouched and carries no side effects: callers
// use that to fall back to treating the datagram as audio (spec.md §4.7.1).
func Parse(b []byte) ([]byte, Message, error) {
	if len(b) < envelopeOverhead {
		return nil, Message{}, ErrShortEnvelope
	}
	if b[0] != 0x00 || b[1] != 0x00 {
		return nil, Message{}, ErrBadTag
	}

	id := binary.LittleEndian.Uint16(b[2:4])
	counter := b[4]
	length := int(binary.LittleEndian.Uint16(b[5:7]))

	frameEnd := 7 + length
	if len(b) < frameEnd+2 {
		return nil, Message{}, ErrShortEnvelope
	}

	want := binary.LittleEndian.Uint16(b[frameEnd : frameEnd+2])
	got := checksum(b[:frameEnd])
	if want != got {
		return nil, Message{}, ErrChecksumMismatch
	}

	data := make([]byte, length)
	copy(data, b[7:frameEnd])

	return b[frameEnd+2:], Message{ID: id, Counter: counter, Data: data}, nil
}
