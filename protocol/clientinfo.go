package protocol

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrMalformedClientInfo is returned by ParseClientInfoList when a record
// is truncated or contains non-UTF-8 text. The whole list is rejected;
// partial success is never exposed (spec.md §4.3).
var ErrMalformedClientInfo = errors.New("protocol: malformed client-info record")

// ClientInfo is one entry of the id-24 client-list payload (spec.md §3).
// The ip field is parsed but intentionally discarded.
type ClientInfo struct {
	ChannelID    uint8
	CountryID    uint16
	InstrumentID uint32
	SkillLevel   uint8
	Name         string
	City         string
}

// ParseClientInfoList decodes every ClientInfo record packed into data,
// consuming it end to end. A malformed record anywhere in the list
// aborts the whole parse.
func ParseClientInfoList(data []byte) ([]ClientInfo, error) {
	var clients []ClientInfo

	for len(data) > 0 {
		client, rest, err := parseClientInfo(data)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
		data = rest
	}

	return clients, nil
}

func parseClientInfo(b []byte) (ClientInfo, []byte, error) {
	// channel_id:u8, country_id:u16, instrument_id:u32, skill_level:u8,
	// ip:u32 (ignored), name:utf8 length-prefixed u16, city:utf8
	// length-prefixed u16.
	const fixedLen = 1 + 2 + 4 + 1 + 4
	if len(b) < fixedLen {
		return ClientInfo{}, nil, ErrMalformedClientInfo
	}

	info := ClientInfo{
		ChannelID:    b[0],
		CountryID:    binary.LittleEndian.Uint16(b[1:3]),
		InstrumentID: binary.LittleEndian.Uint32(b[3:7]),
		SkillLevel:   b[7],
	}
	b = b[fixedLen:]

	name, b, err := takeLengthPrefixedUTF8(b)
	if err != nil {
		return ClientInfo{}, nil, err
	}
	info.Name = name

	city, b, err := takeLengthPrefixedUTF8(b)
	if err != nil {
		return ClientInfo{}, nil, err
	}
	info.City = city

	return info, b, nil
}

func takeLengthPrefixedUTF8(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, ErrMalformedClientInfo
	}
	n := int(binary.LittleEndian.Uint16(b[:2]))
	b = b[2:]

	if len(b) < n {
		return "", nil, ErrMalformedClientInfo
	}
	text := b[:n]
	if !utf8.Valid(text) {
		return "", nil, ErrMalformedClientInfo
	}

	return string(text), b[n:], nil
}
