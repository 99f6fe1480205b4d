package usecase

import (
	"time"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// CreateParams describes a new record registration. The raw log content
// travels separately as a reader.
type CreateParams struct {
	Name        string
	Description string
	Owner       string
	Author      string
	Filename    string

	// DetectorName and CalibName reference catalog entries by name.
	DetectorName string
	CalibName    string

	TimeTracked bool
	TimeStart   *time.Time

	// Time of interest, milliseconds on the artifact's zero-based axis.
	TimeOfInterestStart *float64
	TimeOfInterestEnd   *float64
}

type CreateResult struct {
	RecordID string
	Status   entity.ProcessingStatus
}

// TimeFilter restricts queries to rows with time_ms in [Start, End].
// Nil bounds are open.
type TimeFilter struct {
	Start *float64
	End   *float64
}

// SpectrumResult is the per-channel rate distribution. Values hold
// (x, rate) pairs ordered by channel; x is the calibrated display energy in
// keV when a calibration is attached, the raw channel index otherwise.
// Rates are counts per millisecond of span (the table's native time unit).
type SpectrumResult struct {
	Values     [][2]float64
	TotalTime  float64
	Calibrated bool
}

// EvolutionResult is the count-rate time series. Values hold (time, rate)
// pairs in row order; the time axis is absolute unix milliseconds for
// time-tracked records and zero-based otherwise. TimeOfInterest echoes the
// record's stored window (shifted the same way), nil when unset.
type EvolutionResult struct {
	Values         [][2]float64
	TotalTime      float64
	TimeTracked    bool
	TimeOfInterest *[2]float64
}

// HistogramResult holds (channel, time, count) triples, channel ascending
// then time ascending, zero counts omitted.
type HistogramResult struct {
	Values [][3]float64
	Meta   HistogramMeta
}

type HistogramMeta struct {
	FilteredRows int
	TimeRange    [2]float64
	Bins         int
	Channels     int
	NonZero      int
}

// DoseRateResult summarizes absorbed dose over the selected window.
// Mean and Std are in micro-gray per hour, Total in micro-gray.
type DoseRateResult struct {
	Mean  float64
	Std   float64
	Total float64
}
