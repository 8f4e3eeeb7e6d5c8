package detect

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"time"
)

// DefaultSensitivity is the adaptive-threshold sensitivity used by the
// binarization sweep.
const DefaultSensitivity = 0.85

// Engine runs the detection strategies and merges their results.
//
// The zero value is not usable; construct with New. An Engine is stateless
// across calls and safe for concurrent use, though the scheduler only ever
// runs one buffer through it at a time.
type Engine struct {
	scales      []float64
	windows     []int
	fixedLevels []uint8
	sensitivity float64
}

// New creates an Engine with the standard strategy parameters.
func New() *Engine {
	return &Engine{
		scales:      []float64{1.0, 0.8, 1.2, 0.6, 1.5, 0.4},
		windows:     []int{15, 31, 51},
		fixedLevels: []uint8{100, 128, 160},
		sensitivity: DefaultSensitivity,
	}
}

// strategyResult is what one strategy contributes to the merge.
type strategyResult struct {
	name     string
	payloads []string
	elapsed  time.Duration
	err      error
}

// Detect extracts every QR payload the strategies can find in the buffer.
// The result is the deduplicated union of all strategies' payload strings,
// sorted for determinism. The source buffer is never mutated; each strategy
// works on its own copy, so Detect is idempotent on the same input.
//
// Buffers with any dimension below MinDimension short-circuit to an empty
// result without invoking any strategy.
func (e *Engine) Detect(img image.Image) []string {
	bounds := img.Bounds()
	if bounds.Dx() < MinDimension || bounds.Dy() < MinDimension {
		return nil
	}

	strategies := []struct {
		name string
		run  func(image.Image) ([]string, error)
	}{
		{"multi-scale", e.multiScale},
		{"enhanced-preprocessing", e.preprocessed},
		{"binarization-sweep", e.binarization},
		{"region-based", e.regions},
	}

	results := make([]strategyResult, len(strategies))
	var wg sync.WaitGroup
	for i, st := range strategies {
		wg.Add(1)
		go func(i int, name string, run func(image.Image) ([]string, error)) {
			defer wg.Done()
			start := time.Now()
			// A failing strategy is excluded from the merge; it must not
			// take its siblings down with it.
			defer func() {
				if r := recover(); r != nil {
					results[i] = strategyResult{
						name: name,
						err:  fmt.Errorf("strategy %s panicked: %v", name, r),
					}
				}
			}()
			payloads, err := run(img)
			results[i] = strategyResult{
				name:     name,
				payloads: payloads,
				elapsed:  time.Since(start),
				err:      err,
			}
		}(i, st.name, st.run)
	}
	wg.Wait()

	return merge(results)
}

// merge unions the payload sets of all successful strategies, deduplicated
// by exact string equality.
func merge(results []strategyResult) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, res := range results {
		if res.err != nil {
			continue
		}
		for _, p := range res.payloads {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
	}
	sort.Strings(merged)
	return merged
}
