package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/colfile"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// loadTable fetches the record and re-reads its spectral artifact. The
// artifact is the source of truth and is decoded fresh on every query; a
// record that is not completed yet yields a not-ready error, never partial
// data.
func (u *Usecase) loadTable(ctx context.Context, recordID string) (entity.SpectralRecord, entity.SpectralTable, error) {
	if recordID == "" {
		return entity.SpectralRecord{}, entity.SpectralTable{}, pkgerror.NewInvalidInput(errors.New("record id is required"))
	}

	record, err := u.store.GetRecord(ctx, recordID)
	if err != nil {
		return entity.SpectralRecord{}, entity.SpectralTable{}, mapStoreErr(err)
	}

	if record.ProcessingStatus != entity.ProcessingCompleted {
		return entity.SpectralRecord{}, entity.SpectralTable{}, pkgerror.NewBusiness(
			fmt.Sprintf("record processing not completed, status: %s", record.ProcessingStatus),
			pkgerror.CodeNotReady,
		)
	}

	artifact, err := u.store.GetArtifact(ctx, record.ID, entity.ArtifactSpectral)
	if errors.Is(err, pkgerror.ErrNotFound) {
		return entity.SpectralRecord{}, entity.SpectralTable{}, pkgerror.NewBusiness("spectral artifact not found", pkgerror.CodeNotFound)
	}
	if err != nil {
		return entity.SpectralRecord{}, entity.SpectralTable{}, normalizeErr(err)
	}

	blob, err := u.blobs.Open(ctx, artifact.FileID)
	if err != nil {
		return entity.SpectralRecord{}, entity.SpectralTable{}, pkgerror.NewServer(err)
	}
	defer func() { _ = blob.Close() }()

	table, err := colfile.Read(blob)
	if err != nil {
		return entity.SpectralRecord{}, entity.SpectralTable{}, pkgerror.NewServer(err)
	}

	return record, table, nil
}

// clampSpan returns the elapsed time of the table, clamped to 1 when the
// span is zero or undefined so single-row data stays divisible.
func clampSpan(table entity.SpectralTable) float64 {
	min, max, ok := table.TimeRange()
	span := max - min
	if !ok || span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 1
	}
	return span
}

// logScale is the display transform applied to rates when requested. The
// fixed offset keeps small and zero rates plottable; the exact constants
// are a compatibility contract with existing clients.
func logScale(rate float64) float64 {
	return math.Log10(rate+10) - 0.9
}

// Spectrum computes the per-channel count rate over the (optionally
// time-filtered) table. With a calibration attached, channel indices map to
// display energy in keV via (coef0 + i*coef1)/1000.
func (u *Usecase) Spectrum(ctx context.Context, recordID string, filter TimeFilter, logarithm bool) (SpectrumResult, error) {
	record, table, err := u.loadTable(ctx, recordID)
	if err != nil {
		return SpectrumResult{}, err
	}

	filtered := table.FilterTime(filter.Start, filter.End)
	span := clampSpan(filtered)

	sums := make([]float64, filtered.ChannelCount())
	for c := range sums {
		sums[c] = float64(filtered.ChannelSum(c))
	}
	rates := make([]float64, len(sums))
	vecmath.ScaleBlock(rates, sums, 1/span)

	values := make([][2]float64, len(rates))
	for c, rate := range rates {
		if logarithm {
			rate = logScale(rate)
		}
		x := float64(c)
		if record.Calib != nil {
			x = (record.Calib.Coef0 + float64(c)*record.Calib.Coef1) / 1000
		}
		values[c] = [2]float64{x, rate}
	}

	return SpectrumResult{
		Values:     values,
		TotalTime:  span,
		Calibrated: record.Calib != nil,
	}, nil
}

// Evolution computes the total count rate per exposure over time. For
// time-tracked records the time axis (and the echoed time-of-interest
// window) is shifted to absolute unix milliseconds.
func (u *Usecase) Evolution(ctx context.Context, recordID string, filter TimeFilter, logarithm bool) (EvolutionResult, error) {
	record, table, err := u.loadTable(ctx, recordID)
	if err != nil {
		return EvolutionResult{}, err
	}

	filtered := table.FilterTime(filter.Start, filter.End)
	span := clampSpan(filtered)

	totals := make([]float64, filtered.Rows())
	for i := range totals {
		totals[i] = float64(filtered.RowTotal(i))
	}
	rates := make([]float64, len(totals))
	vecmath.ScaleBlock(rates, totals, 1/span)

	shift := record.TimeStartMS()
	values := make([][2]float64, len(rates))
	for i, rate := range rates {
		if logarithm {
			rate = logScale(rate)
		}
		values[i] = [2]float64{filtered.TimeMS[i] + shift, rate}
	}

	var interest *[2]float64
	if start, end, ok := record.TimeOfInterest(); ok {
		interest = &[2]float64{start + shift, end + shift}
	}

	return EvolutionResult{
		Values:         values,
		TotalTime:      span,
		TimeTracked:    record.TimeTracked,
		TimeOfInterest: interest,
	}, nil
}

// Histogram sums channel counts inside equal-width time bins and emits the
// non-zero (channel, bin center, count) triples, channel ascending then bin
// ascending. Bin centers span the filtered time range, so binning with one
// bin per distinct timestamp of an evenly sampled table reproduces the
// original timestamps.
func (u *Usecase) Histogram(ctx context.Context, recordID string, bins int, filter TimeFilter) (HistogramResult, error) {
	if bins < 1 {
		return HistogramResult{}, pkgerror.NewInvalidInput(errors.New("time_bins must be positive"))
	}

	_, table, err := u.loadTable(ctx, recordID)
	if err != nil {
		return HistogramResult{}, err
	}

	filtered := table.FilterTime(filter.Start, filter.End)
	if filtered.Rows() == 0 {
		return HistogramResult{
			Values: [][3]float64{},
			Meta:   HistogramMeta{Bins: bins, Channels: filtered.ChannelCount()},
		}, nil
	}

	min, max, _ := filtered.TimeRange()
	span := max - min

	binOf := func(t float64) int { return 0 }
	center := func(bin int) float64 { return (min + max) / 2 }
	if bins > 1 && span > 0 {
		width := span / float64(bins-1)
		binOf = func(t float64) int {
			bin := int(math.Round((t - min) / width))
			if bin < 0 {
				bin = 0
			}
			if bin >= bins {
				bin = bins - 1
			}
			return bin
		}
		center = func(bin int) float64 { return min + float64(bin)*width }
	}

	counts := make([][]int64, filtered.ChannelCount())
	for c := range counts {
		counts[c] = make([]int64, bins)
	}
	for row := 0; row < filtered.Rows(); row++ {
		bin := binOf(filtered.TimeMS[row])
		for c := range filtered.Channels {
			counts[c][bin] += filtered.Channels[c][row]
		}
	}

	values := make([][3]float64, 0, filtered.Rows())
	for c := range counts {
		for bin, count := range counts[c] {
			if count > 0 {
				values = append(values, [3]float64{float64(c), center(bin), float64(count)})
			}
		}
	}

	return HistogramResult{
		Values: values,
		Meta: HistogramMeta{
			FilteredRows: filtered.Rows(),
			TimeRange:    [2]float64{min, max},
			Bins:         bins,
			Channels:     filtered.ChannelCount(),
			NonZero:      len(values),
		},
	}, nil
}

// SimpleHistogram emits one (channel, row index, count) triple per non-zero
// cell of the unbinned table. Cheaper fallback path; ordering matches
// Histogram (channel ascending, then row ascending).
func (u *Usecase) SimpleHistogram(ctx context.Context, recordID string) (HistogramResult, error) {
	_, table, err := u.loadTable(ctx, recordID)
	if err != nil {
		return HistogramResult{}, err
	}

	values := make([][3]float64, 0, table.Rows())
	for c := range table.Channels {
		for row, count := range table.Channels[c] {
			if count > 0 {
				values = append(values, [3]float64{float64(c), float64(table.IDs[row]), float64(count)})
			}
		}
	}

	min, max, _ := table.TimeRange()
	return HistogramResult{
		Values: values,
		Meta: HistogramMeta{
			FilteredRows: table.Rows(),
			TimeRange:    [2]float64{min, max},
			Channels:     table.ChannelCount(),
			NonZero:      len(values),
		},
	}, nil
}
