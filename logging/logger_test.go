package logging

import (
	"errors"
	"testing"
)

func TestNewStderr(t *testing.T) {
	l, err := NewStderr()
	if err != nil {
		t.Fatalf("NewStderr: %v", err)
	}

	l.Info("listener started")
	l.Error("demo failure", errors.New("boom"))

	child := l.With()
	if child == nil {
		t.Fatal("With returned a nil Logger")
	}
}
