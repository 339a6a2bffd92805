package audio

import "testing"

func TestJitterBufferFillPhaseReturnsNothing(t *testing.T) {
	b := NewJitterBuffer[string](4)
	seqs := []uint8{10, 11, 12, 13}
	for i, seq := range seqs {
		if _, ok := b.PutIn("payload", seq); ok {
			t.Fatalf("insert %d during fill phase returned an eviction", i)
		}
	}
}

func TestJitterBufferFIFOUnderOrderedInput(t *testing.T) {
	const capacity = 3
	b := NewJitterBuffer[string](capacity)

	payloads := []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	var startSeq uint8 = 100

	for i, p := range payloads {
		evicted, ok := b.PutIn(p, startSeq+uint8(i))
		if i < capacity {
			if ok {
				t.Fatalf("insert %d unexpectedly evicted %v", i, evicted)
			}
			continue
		}
		want := payloads[i-capacity]
		if !ok || evicted != want {
			t.Fatalf("insert %d: got evicted=%v ok=%v, want %v", i, evicted, ok, want)
		}
	}
}

func TestJitterBufferReorderTolerance(t *testing.T) {
	b := NewJitterBuffer[string](3)

	type step struct {
		payload string
		seq     uint8
		want    string
		wantOK  bool
	}
	steps := []step{
		{"C", 22, "", false},
		{"B", 21, "", false},
		{"A", 20, "", false},
		{"E", 24, "A", true},
		{"F", 25, "B", true},
		{"D", 23, "C", true},
	}

	for i, s := range steps {
		got, ok := b.PutIn(s.payload, s.seq)
		if ok != s.wantOK || got != s.want {
			t.Fatalf("step %d: got (%q, %v), want (%q, %v)", i, got, ok, s.want, s.wantOK)
		}
	}
}

func TestJitterBufferU8Wraparound(t *testing.T) {
	b := NewJitterBuffer[string](3)

	type step struct {
		payload string
		seq     uint8
		want    string
		wantOK  bool
	}
	steps := []step{
		{"A", 253, "", false},
		{"D", 0, "", false},
		{"C", 255, "", false},
		{"B", 254, "A", true},
		{"F", 2, "B", true},
		{"E", 1, "C", true},
	}

	for i, s := range steps {
		got, ok := b.PutIn(s.payload, s.seq)
		if ok != s.wantOK || got != s.want {
			t.Fatalf("step %d: got (%q, %v), want (%q, %v)", i, got, ok, s.want, s.wantOK)
		}
	}
}

func TestJitterBufferDistanceBoundaryTieBreak(t *testing.T) {
	// Two frames carrying the same sequence number are equidistant from any
	// latest value, which is the only way two live entries can genuinely
	// tie. The earlier-stored entry must win the eviction.
	b := NewJitterBuffer[string](2)

	b.PutIn("first", 5)
	b.PutIn("second", 5)

	evicted, ok := b.PutIn("third", 6)
	if !ok || evicted != "first" {
		t.Fatalf("got (%q, %v), want (\"first\", true)", evicted, ok)
	}
}
