package audio

/*
#cgo pkg-config: opus
#include <opus_custom.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

// SampleRate, Channels and FrameSize are the fixed Opus-custom parameters
// the reference server always encodes with (spec.md §4.5). The listener
// never negotiates these; they're compile-time constants.
const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 128
)

// ErrDecoderInit is wrapped around any failure constructing the underlying
// codec. The caller treats this as fatal at startup, mirroring the
// reference client's behavior of aborting the process rather than running
// with no audio path.
var ErrDecoderInit = errors.New("audio: failed to initialize opus custom decoder")

// errOpusCustomDecode is wrapped around a negative opus_custom_decode
// return value (libopus's convention for "this packet is bad").
var errOpusCustomDecode = errors.New("audio: opus custom decode failed")

// Decoder wraps an Opus-custom decoder fixed at SampleRate/Channels/
// FrameSize. 128 samples at 48kHz (2.667ms) is not one of stock Opus's
// five standard frame durations, and opus_custom's raw bitstream carries
// no mandatory TOC byte the way a standard Opus packet does - a stock
// decoder (gopkg.in/hraban/opus.v2, bound to opus_decode()) cannot parse
// this stream at all. There is no Go binding for opus_custom anywhere in
// the retrieved corpus, so this binds libopus's opus_custom_mode_create/
// opus_custom_decoder_create/opus_custom_decode C API directly via cgo,
// the same functions original_source/src/audio.rs binds.
type Decoder struct {
	mode *C.OpusCustomMode
	dec  *C.OpusCustomDecoder
}

// NewDecoder constructs a Decoder. A failure here is unrecoverable: it
// indicates the codec library itself is unusable, not a bad packet.
func NewDecoder() (*Decoder, error) {
	var cErr C.int

	mode := C.opus_custom_mode_create(C.opus_int32(SampleRate), C.int(FrameSize), &cErr)
	if mode == nil {
		return nil, errors.Wrapf(ErrDecoderInit, "opus_custom_mode_create: error %d", int(cErr))
	}

	dec := C.opus_custom_decoder_create(mode, C.int(Channels), &cErr)
	if dec == nil {
		C.opus_custom_mode_destroy(mode)
		return nil, errors.Wrapf(ErrDecoderInit, "opus_custom_decoder_create: error %d", int(cErr))
	}

	return &Decoder{mode: mode, dec: dec}, nil
}

// Decode decodes one 165-byte Opus-custom payload into interleaved 16-bit
// PCM samples. The returned slice holds Channels samples for every
// per-channel sample the codec reports decoding (FrameSize under normal
// operation, so FrameSize*Channels in all); a decode failure returns a nil
// slice and an error.
func (d *Decoder) Decode(payload []byte) ([]int16, error) {
	if len(payload) == 0 {
		return nil, errors.New("audio: empty opus custom payload")
	}

	pcm := make([]int16, FrameSize*Channels)

	n := C.opus_custom_decode(
		d.dec,
		(*C.uchar)(unsafe.Pointer(&payload[0])),
		C.int(len(payload)),
		(*C.opus_int16)(unsafe.Pointer(&pcm[0])),
		C.int(FrameSize),
	)
	if n < 0 {
		return nil, errors.Wrapf(errOpusCustomDecode, "opus_custom_decode returned %d", int(n))
	}

	return pcm[:int(n)*Channels], nil
}

// Close releases the native decoder and its mode. Safe to call once; the
// zeroed fields make a second call a no-op rather than a double free.
func (d *Decoder) Close() error {
	if d.dec != nil {
		C.opus_custom_decoder_destroy(d.dec)
		d.dec = nil
	}
	if d.mode != nil {
		C.opus_custom_mode_destroy(d.mode)
		d.mode = nil
	}
	return nil
}
