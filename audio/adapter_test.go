package audio

import (
	"bytes"
	"errors"
	"testing"
)

type fakeSink struct {
	buf     bytes.Buffer
	failErr error
}

func (s *fakeSink) Write(p []byte) (int, error) {
	if s.failErr != nil {
		return 0, s.failErr
	}
	return s.buf.Write(p)
}

func (s *fakeSink) Close() error { return nil }

// fakeDecoder hands back a fixed PCM frame for every payload, so adapter
// tests exercise buffering and sink wiring without driving a real codec.
type fakeDecoder struct {
	err error
}

func (d *fakeDecoder) Decode(payload []byte) ([]int16, error) {
	if d.err != nil {
		return nil, d.err
	}
	return make([]int16, FrameSize*Channels), nil
}

func buildAudioPacket(seq1, seq2 uint8) []byte {
	p := make([]byte, audioPacketSize)
	copy(p[0:3], silentPayloadPrefix[:])
	p[payloadSize] = seq1
	copy(p[halfSize:halfSize+3], silentPayloadPrefix[:])
	p[halfSize+payloadSize] = seq2
	return p
}

func TestAdapterRejectsShortPacket(t *testing.T) {
	a := NewAdapter(&fakeDecoder{}, 4, &fakeSink{}, nil)

	if err := a.HandleAudioPacket(make([]byte, 10)); err != ErrShortAudioPacket {
		t.Fatalf("got err=%v, want ErrShortAudioPacket", err)
	}
}

func TestAdapterReportsSinkFailure(t *testing.T) {
	wantErr := errors.New("broken pipe")
	s := &fakeSink{failErr: wantErr}

	var reported error
	a := NewAdapter(&fakeDecoder{}, 1, s, func(err error) { reported = err })

	// Capacity 1: the first half fills the buffer, the second half evicts
	// it and triggers the write that fails.
	_ = a.HandleAudioPacket(buildAudioPacket(1, 2))

	if reported == nil {
		t.Fatal("onSinkError was never called")
	}
}

func TestAdapterWritesDecodedPCMOnEviction(t *testing.T) {
	s := &fakeSink{}
	a := NewAdapter(&fakeDecoder{}, 1, s, nil)

	if err := a.HandleAudioPacket(buildAudioPacket(1, 2)); err != nil {
		t.Fatalf("HandleAudioPacket: %v", err)
	}

	wantBytes := FrameSize * Channels * 2
	if s.buf.Len() != wantBytes {
		t.Fatalf("got %d bytes written, want %d", s.buf.Len(), wantBytes)
	}
}
