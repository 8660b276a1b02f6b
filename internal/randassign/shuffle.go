package randassign

import "errors"

// Source provides uniform integer draws. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a uniform draw in [0, n). n must be > 0.
	IntN(n int) int
}

// ErrNoOptions is returned when a selection is made from an empty option set.
var ErrNoOptions = errors.New("randassign: empty option set")

// Shuffle permutes items in place with the Fisher–Yates algorithm, walking
// from the last index down to 1 and swapping with a uniform index in [0, i].
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Choose returns one uniformly drawn element of options.
func Choose[T any](src Source, options []T) (T, error) {
	var zero T
	if len(options) == 0 {
		return zero, ErrNoOptions
	}
	return options[src.IntN(len(options))], nil
}

// workerTails is the fixed, pre-shuffled table of worker-id tail characters.
var workerTails = []byte("49FZH1UA8PQCSMLE3NVOB7D2KWJXRI50TG6Y")

// ByWorkerID picks an option deterministically from the last character of a
// worker id. Each tail maps to its table position modulo len(options). An
// empty or unknown tail falls back to a random table entry.
func ByWorkerID[T any](src Source, options []T, workerID string) (T, error) {
	var zero T
	if len(options) == 0 {
		return zero, ErrNoOptions
	}

	idx := -1
	if workerID != "" {
		tail := workerID[len(workerID)-1]
		for i, t := range workerTails {
			if t == tail {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		idx = src.IntN(len(workerTails))
	}
	return options[idx%len(options)], nil
}
