package merge

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sepa-leadgen/internal/model"
)

func TestParallelMapPreservesOrder(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		got := parallelMap(1000, workers, func(i int) int { return i * i })
		for i, v := range got {
			if v != i*i {
				t.Fatalf("workers=%d: position %d got %d", workers, i, v)
			}
		}
	}
}

func TestParallelMapEmpty(t *testing.T) {
	got := parallelMap(0, 4, func(i int) int { return i })
	assert.Empty(t, got)
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 1, WorkerCount(8, 0))
	assert.Equal(t, 3, WorkerCount(8, 3))
	assert.Equal(t, 4, WorkerCount(4, 100))
	want := runtime.NumCPU()
	if want > 100 {
		want = 100
	}
	assert.Equal(t, want, WorkerCount(0, 100))
}

func TestSignalSetUpsertReplaces(t *testing.T) {
	s := NewSignalSet()
	s.Upsert(model.NewSignal("E2", SignalSector, "Healthcare", SourceNAICS, runAt))
	s.Upsert(model.NewSignal("E1", SignalSector, "Construction", SourceNAICS, runAt))
	s.Upsert(model.NewSignal("E1", SignalSector, "Fleet and Transportation", SourceNAICS, runAt))

	sorted := s.Sorted()
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "E1_sector", sorted[0].SignalID)
	assert.Equal(t, "Fleet and Transportation", sorted[0].SignalValue)
	assert.Equal(t, "E2_sector", sorted[1].SignalID)
}
