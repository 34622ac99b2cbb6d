package mapping

import (
	"runtime"
	"sync"
)

// WorkItem holds one interval query ready for mapping.
type WorkItem struct {
	Seq       int
	ProteinID string
	AACoords  string
	Extra     any // caller-specific data (e.g. the source row)
}

// WorkResult holds the mapping output for a single query.
// Mapping is nil when the query could not be mapped.
type WorkResult struct {
	Seq     int
	Mapping *Mapping
	Extra   any
}

// ParallelMap maps work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use CollectInRowOrder to consume results in row order.
// If workers is 0, runtime.NumCPU() is used.
func (m *Mapper) ParallelMap(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:     item.Seq,
					Mapping: m.Map(item.ProteinID, item.AACoords),
					Extra:   item.Extra,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// CollectInRowOrder hands results to emit in the order their rows appear
// in the source table, so a mapped table keeps its input row order no
// matter which worker finished first. Results for rows past the next one
// to emit wait in a reorder buffer. If emit fails, the remaining results
// are discarded so the workers can exit, and the error is returned.
func CollectInRowOrder(results <-chan WorkResult, emit func(WorkResult) error) error {
	waiting := make(map[int]WorkResult)
	next := 0

	for r := range results {
		if r.Seq != next {
			waiting[r.Seq] = r
			continue
		}
		for ok := true; ok; r, ok = waiting[next] {
			delete(waiting, next)
			next++
			if err := emit(r); err != nil {
				discard(results)
				return err
			}
		}
	}
	return nil
}

func discard(results <-chan WorkResult) {
	for range results {
	}
}

// Query is one (protein, interval string) pair for MapAll.
type Query struct {
	ProteinID string
	AACoords  string
}

// MapAll maps every query with the given number of workers and returns the
// results in query order. Unmapped queries yield nil entries.
func (m *Mapper) MapAll(queries []Query, workers int) []*Mapping {
	items := make(chan WorkItem, 2*max(workers, 1))
	go func() {
		defer close(items)
		for i, q := range queries {
			items <- WorkItem{Seq: i, ProteinID: q.ProteinID, AACoords: q.AACoords}
		}
	}()

	out := make([]*Mapping, 0, len(queries))
	// fn never fails, so the error is always nil.
	_ = CollectInRowOrder(m.ParallelMap(items, workers), func(r WorkResult) error {
		out = append(out, r.Mapping)
		return nil
	})
	return out
}
