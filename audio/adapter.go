package audio

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/jamulus-go/client/sink"
)

// audioPacketSize is the size of a complete two-half inbound audio
// datagram, matching the shape SilenceGenerator produces on the way out
// (spec.md §4.4/§4.6).
const audioPacketSize = silentPacketSize

// ErrShortAudioPacket is returned when a datagram claiming to be audio
// doesn't carry both 166-byte halves.
var ErrShortAudioPacket = errors.New("audio: packet is shorter than two halves")

// frameDecoder is the subset of *Decoder the adapter depends on, narrowed
// out so tests can substitute a fake without driving a real codec.
type frameDecoder interface {
	Decode(payload []byte) ([]int16, error)
}

// Adapter is the audio path's single entry point from the protocol engine:
// it reorders both halves of an inbound audio datagram through a
// JitterBuffer of raw Opus payloads, and only decodes the payload that
// falls out the back, on eviction. Buffering before decoding (rather than
// after) is what makes the reordering meaningful: decoding in network
// arrival order would run out-of-order frames through one stateful
// decoder instance regardless of what the buffer does with them
// afterward. A sink write failure is treated as fatal for the session and
// reported through onSinkError, mirroring the reference client's listener
// binary shutting down when its PCM consumer goes away.
//
// Adapter also satisfies the engine's chat half of the Handler capability
// (spec.md §9): chat lines are simply forwarded to OnChatText, since the
// audio path has no use for them beyond passing them along to whatever the
// host wants done with chat.
type Adapter struct {
	decoder frameDecoder
	buffer  *JitterBuffer[[]byte]
	out     sink.Sink

	onSinkError func(error)

	// OnChatText, if non-nil, is called for every chat line the engine
	// dispatches. It defaults to nil, meaning chat is silently dropped.
	OnChatText func(text string)
}

// NewAdapter builds an Adapter that decodes into out, reordering through a
// jitter buffer of the given capacity. onSinkError, if non-nil, is called
// at most once, the first time a write to out fails.
func NewAdapter(decoder frameDecoder, capacity int, out sink.Sink, onSinkError func(error)) *Adapter {
	return &Adapter{
		decoder:     decoder,
		buffer:      NewJitterBuffer[[]byte](capacity),
		out:         out,
		onSinkError: onSinkError,
	}
}

// HandleChatText implements the engine's chat dispatch capability.
func (a *Adapter) HandleChatText(text string) {
	if a.OnChatText != nil {
		a.OnChatText(text)
	}
}

// HandleAudioPacket implements the protocol engine's audio dispatch
// capability (spec.md §4.7.5). packet must be the full 332-byte datagram;
// each 166-byte half is fed into the jitter buffer independently, since
// the two halves carry their own sequence numbers.
func (a *Adapter) HandleAudioPacket(packet []byte) error {
	if len(packet) < audioPacketSize {
		return ErrShortAudioPacket
	}

	if err := a.handleHalf(packet[0:halfSize]); err != nil {
		return err
	}
	return a.handleHalf(packet[halfSize : 2*halfSize])
}

// handleHalf buffers half's raw Opus payload keyed by its sequence number
// and, only once the jitter buffer evicts a payload in exchange, decodes
// that evicted payload and writes it out. The half passed in is never
// decoded directly: the buffer sits between arrival and decode so a
// stream that arrives out of order gets reordered before a single
// stateful decoder instance ever sees it.
func (a *Adapter) handleHalf(half []byte) error {
	payload := make([]byte, payloadSize)
	copy(payload, half[:payloadSize])
	seq := half[payloadSize]

	evicted, ok := a.buffer.PutIn(payload, seq)
	if !ok {
		return nil
	}

	pcm, err := a.decoder.Decode(evicted)
	if err != nil {
		return errors.Wrap(err, "audio: decoding packet half")
	}

	return a.write(pcm)
}

func (a *Adapter) write(pcm []int16) error {
	raw := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(sample))
	}

	if _, err := a.out.Write(raw); err != nil {
		wrapped := errors.Wrap(err, "audio: writing PCM to sink")
		if a.onSinkError != nil {
			report := a.onSinkError
			a.onSinkError = nil
			report(wrapped)
		}
		return wrapped
	}

	return nil
}
