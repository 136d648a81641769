package quality

import (
	"context"
	"sync"

	"github.com/valpere/qualitran/internal"
)

// BatchFailure reports one pair the batch could not score.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult maps translation ids to their scores, alongside the pairs that
// failed validation or lookup.
type BatchResult struct {
	Results  map[string]*internal.QualityScore `json:"results"`
	Failures []BatchFailure                    `json:"failures"`
}

// EvaluateBatch scores many pairs through a fixed-size concurrency window.
// The window admits the next group only after every in-flight evaluation
// settles, bounding concurrent provider calls. One failing pair never aborts
// its siblings; it lands in Failures instead.
func (s *Service) EvaluateBatch(ctx context.Context, translationIDs []string, opts Options) *BatchResult {
	out := &BatchResult{
		Results: make(map[string]*internal.QualityScore, len(translationIDs)),
	}

	var mu sync.Mutex
	window := s.cfg.BatchWindow

	for start := 0; start < len(translationIDs); start += window {
		end := start + window
		if end > len(translationIDs) {
			end = len(translationIDs)
		}

		var wg sync.WaitGroup
		for _, id := range translationIDs[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				score, err := s.Evaluate(ctx, id, opts)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					out.Failures = append(out.Failures, BatchFailure{ID: id, Error: err.Error()})
					return
				}
				out.Results[id] = score
			}(id)
		}
		wg.Wait()
	}

	return out
}
