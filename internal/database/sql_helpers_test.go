package database

import (
	"testing"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
)

func TestPositiveID(t *testing.T) {
	flex := func(v int64) *models.FlexInt64 {
		f := models.FlexInt64(v)
		return &f
	}
	if got := positiveID(nil); got != nil {
		t.Fatalf("positiveID(nil) = %v, want nil", *got)
	}
	for _, v := range []int64{0, -4} {
		if got := positiveID(flex(v)); got != nil {
			t.Fatalf("positiveID(%d) = %v, want nil", v, *got)
		}
	}
	in := flex(12)
	got := positiveID(in)
	if got == nil || *got != 12 {
		t.Fatalf("positiveID(12) = %v, want 12", got)
	}
	*in = 99
	if *got != 12 {
		t.Fatalf("positiveID must copy the value, got %d after mutating input", *got)
	}
}

func TestChunkIDs(t *testing.T) {
	ids := make([]int64, 2*config.HydrationBatchSize+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	chunks := chunkIDs(ids)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != ids[len(ids)-1] {
		t.Fatalf("last chunk = %v", chunks[2])
	}
	if chunkIDs(nil) != nil {
		t.Fatalf("expected no chunks for no ids")
	}
}
