package composite

import "time"

// Progress reports batch scoring progress
type Progress struct {
	Current     int       // Pairs scored so far
	Total       int       // Pairs in the batch
	Description string    // Label of the pair just scored
	StartedAt   time.Time // When the batch started (for ETA calculation)
}

// ProgressCallback is called after each pair is scored. Calls are serialized.
type ProgressCallback func(Progress)

// ETA returns the estimated time remaining based on current progress
func (p Progress) ETA() time.Duration {
	if p.Current == 0 || p.Total == 0 || p.StartedAt.IsZero() {
		return 0
	}
	elapsed := time.Since(p.StartedAt)
	rate := float64(p.Current) / elapsed.Seconds()
	if rate <= 0 {
		return 0
	}
	remaining := p.Total - p.Current
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// Percentage returns the completion percentage (0-100)
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}
