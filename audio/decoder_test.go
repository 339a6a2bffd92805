package audio

import "testing"

// TestDecoderDecodesSilentPayloadToZeroSamples pins the one property that
// proves this binds a real opus_custom decoder at the 128-sample frame
// size rather than silently falling back to something stock-Opus-shaped:
// a payload that begins 04 ff fe with the rest zeroed decodes to exactly
// FrameSize samples per channel, all zero. This is the same fixture
// original_source/src/audio.rs pins its own binding against.
func TestDecoderDecodesSilentPayloadToZeroSamples(t *testing.T) {
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	payload := make([]byte, payloadSize)
	copy(payload, silentPayloadPrefix[:])

	pcm, err := dec.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(pcm) != FrameSize*Channels {
		t.Fatalf("got %d samples, want %d", len(pcm), FrameSize*Channels)
	}
	for i, sample := range pcm {
		if sample != 0 {
			t.Fatalf("pcm[%d] = %d, want 0", i, sample)
		}
	}
}

func TestDecoderRejectsEmptyPayload(t *testing.T) {
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	if _, err := dec.Decode(nil); err == nil {
		t.Fatal("Decode of an empty payload succeeded, want an error")
	}
}

func TestDecoderClose(t *testing.T) {
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if err := dec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
