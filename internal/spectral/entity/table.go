package entity

import "fmt"

// SpectralTable is the wide per-channel table built from a raw log: one row
// per exposure, one column per channel plus time and particle count. Stored
// column-major. Tables are immutable once built; filtering returns views.
type SpectralTable struct {
	// IDs is the zero-based row index column.
	IDs []int64
	// TimeMS is the elapsed-time column, normalized to start at zero.
	TimeMS []float64
	// ParticleCount is the per-exposure event counter column.
	ParticleCount []float64
	// Channels holds one column per channel, Channels[c][row].
	Channels [][]int64
}

// Rows returns the number of exposures in the table.
func (t SpectralTable) Rows() int {
	return len(t.TimeMS)
}

// ChannelCount returns the number of channel columns.
func (t SpectralTable) ChannelCount() int {
	return len(t.Channels)
}

// ChannelName returns the canonical column label for a channel index.
func ChannelName(i int) string {
	return fmt.Sprintf("channel_%d", i)
}

// TimeRange returns the min and max of the time column. ok is false for an
// empty table.
func (t SpectralTable) TimeRange() (min, max float64, ok bool) {
	if len(t.TimeMS) == 0 {
		return 0, 0, false
	}
	min, max = t.TimeMS[0], t.TimeMS[0]
	for _, v := range t.TimeMS[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

// FilterTime returns a view of the table restricted to rows whose time lies
// within [start, end]. Nil bounds are open. Row order is preserved; the row
// index column keeps the original ids.
func (t SpectralTable) FilterTime(start, end *float64) SpectralTable {
	if start == nil && end == nil {
		return t
	}

	keep := make([]int, 0, len(t.TimeMS))
	for i, v := range t.TimeMS {
		if start != nil && v < *start {
			continue
		}
		if end != nil && v > *end {
			continue
		}
		keep = append(keep, i)
	}

	out := SpectralTable{
		IDs:           make([]int64, len(keep)),
		TimeMS:        make([]float64, len(keep)),
		ParticleCount: make([]float64, len(keep)),
		Channels:      make([][]int64, len(t.Channels)),
	}
	for c := range t.Channels {
		out.Channels[c] = make([]int64, len(keep))
	}
	for j, i := range keep {
		out.IDs[j] = t.IDs[i]
		out.TimeMS[j] = t.TimeMS[i]
		out.ParticleCount[j] = t.ParticleCount[i]
		for c := range t.Channels {
			out.Channels[c][j] = t.Channels[c][i]
		}
	}
	return out
}

// RowTotal returns the sum of all channel counts in one row.
func (t SpectralTable) RowTotal(row int) int64 {
	var sum int64
	for c := range t.Channels {
		sum += t.Channels[c][row]
	}
	return sum
}

// ChannelSum returns the sum of one channel column.
func (t SpectralTable) ChannelSum(channel int) int64 {
	var sum int64
	for _, v := range t.Channels[channel] {
		sum += v
	}
	return sum
}
