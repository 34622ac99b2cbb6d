package mapping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-domains/internal/cache"
)

// mockLookup returns no transcripts for all proteins.
type mockLookup struct{}

func (m *mockLookup) Transcripts(string) []*cache.Transcript { return nil }

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{
			Seq:       i,
			ProteinID: "P",
			AACoords:  fmt.Sprintf("%d-%d", i+1, i+1),
			Extra:     i,
		}
	}
	close(ch)
	return ch
}

func TestParallelMap_OrderPreservation(t *testing.T) {
	m := NewMapper(&mockLookup{})

	items := makeItems(200)
	results := m.ParallelMap(items, 8)

	var collected []int
	err := CollectInRowOrder(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelMap_SingleWorker(t *testing.T) {
	m := NewMapper(&mockLookup{})

	results := m.ParallelMap(makeItems(50), 1)

	var collected []int
	err := CollectInRowOrder(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestParallelMap_ExtraPreserved(t *testing.T) {
	m := NewMapper(&mockLookup{})

	results := m.ParallelMap(makeItems(10), 4)

	err := CollectInRowOrder(results, func(r WorkResult) error {
		// Extra was set to the sequence number in makeItems
		assert.Equal(t, r.Seq, r.Extra.(int))
		assert.Nil(t, r.Mapping)
		return nil
	})
	require.NoError(t, err)
}

func TestParallelMap_EmptyInput(t *testing.T) {
	m := NewMapper(&mockLookup{})

	ch := make(chan WorkItem)
	close(ch)
	results := m.ParallelMap(ch, 4)

	count := 0
	err := CollectInRowOrder(results, func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCollectInRowOrder_EarlyError(t *testing.T) {
	m := NewMapper(&mockLookup{})

	results := m.ParallelMap(makeItems(100), 4)

	count := 0
	err := CollectInRowOrder(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestMapAll_MatchesSequentialMapping(t *testing.T) {
	m := newMapper(
		cds(100, 129, "P", "T1"),
		cds(200, 229, "P", "T1"),
		cds(500, 529, "Q", "T7"),
	)

	var queries []Query
	for i := 1; i <= 25; i++ {
		queries = append(queries, Query{ProteinID: "P", AACoords: fmt.Sprintf("%d-%d", i, i)})
	}
	queries = append(queries,
		Query{ProteinID: "Q", AACoords: "1-10"},
		Query{ProteinID: "R", AACoords: "1-2"},
		Query{ProteinID: "P", AACoords: "abc"},
	)

	got := m.MapAll(queries, 6)
	require.Len(t, got, len(queries))
	for i, q := range queries {
		assert.Equal(t, m.Map(q.ProteinID, q.AACoords), got[i], "query %d", i)
	}
	assert.Nil(t, got[20], "P has only 20 codons")
	assert.Equal(t, "T7", got[25].TranscriptID)
	assert.Nil(t, got[26])
	assert.Nil(t, got[27])
}

func TestCollectInRowOrder_OutOfOrderRows(t *testing.T) {
	results := make(chan WorkResult, 4)
	for _, seq := range []int{2, 0, 3, 1} {
		results <- WorkResult{Seq: seq, Mapping: &Mapping{GenomicStart: int64(100 + seq)}}
	}
	close(results)

	var starts []int64
	err := CollectInRowOrder(results, func(r WorkResult) error {
		starts = append(starts, r.Mapping.GenomicStart)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102, 103}, starts)
}
