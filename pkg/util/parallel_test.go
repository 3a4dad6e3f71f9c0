package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelRunsEveryItemDespiteFailures(t *testing.T) {
	inputs := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var ran atomic.Int32
	boom := errors.New("boom")

	err := Parallel(context.Background(), inputs, 3, func(_ context.Context, _ int, v int) error {
		ran.Add(1)
		if v%2 == 0 {
			return boom
		}
		return nil
	})

	if got := ran.Load(); got != int32(len(inputs)) {
		t.Fatalf("ran %d items, want %d", got, len(inputs))
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
}

func TestParallelIndexesAreStable(t *testing.T) {
	inputs := []string{"a", "b", "c"}
	out := make([]string, len(inputs))

	if err := Parallel(context.Background(), inputs, 0, func(_ context.Context, i int, s string) error {
		out[i] = s + s
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range inputs {
		if out[i] != s+s {
			t.Fatalf("out[%d] = %q, want %q", i, out[i], s+s)
		}
	}
}

func TestParallelEmpty(t *testing.T) {
	if err := Parallel[int](context.Background(), nil, 4, nil); err != nil {
		t.Fatalf("expected nil error on empty input, got %v", err)
	}
}
