package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
	"github.com/cwbudde/algo-vecmath"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// electronVoltJoules converts deposited energy from eV to joules.
const electronVoltJoules = 1.602e-19

// DoseRate estimates the absorbed dose rate over the record's time of
// interest (or the whole table when no window is set) and writes the
// result into the record's metadata under the reserved outputs key. The
// metadata write is a side effect: callers re-fetch the record to see it.
// Returns the mean dose rate in micro-gray per hour.
func (u *Usecase) DoseRate(ctx context.Context, recordID string) (DoseRateResult, error) {
	record, table, err := u.loadTable(ctx, recordID)
	if err != nil {
		return DoseRateResult{}, err
	}

	if record.Calib == nil {
		return DoseRateResult{}, pkgerror.NewInvalidInput(errors.New("record has no calibration attached"))
	}

	windowStart, windowEnd, hasWindow := record.TimeOfInterest()
	if hasWindow {
		table = table.FilterTime(&windowStart, &windowEnd)
	}
	if table.Rows() == 0 {
		return DoseRateResult{}, pkgerror.NewInvalidInput(errors.New("no exposures in the selected window"))
	}

	// Linear energy per channel, in eV.
	energies := make([]float64, table.ChannelCount())
	for i := range energies {
		energies[i] = record.Calib.Energy(i)
	}

	// Per-exposure deposited energy (eV) is the dot product of the row's
	// channel counts against the energy vector; from there the fixed
	// detector model converts to micro-gray per hour.
	perExposure := make([]float64, table.Rows())
	rowCounts := make([]float64, table.ChannelCount())
	for row := range perExposure {
		for c := range table.Channels {
			rowCounts[c] = float64(table.Channels[c][row])
		}
		depositedEV := vecmath.DotProduct(rowCounts, energies)
		depositedJ := electronVoltJoules * depositedEV
		perExposure[row] = (1e6 * depositedJ / u.dose.DetectorMassKg / u.dose.IntegrationSeconds) * 3600
	}

	mean, variance, _, _ := timestats.Moments(perExposure)
	std := math.Sqrt(variance)

	if !hasWindow {
		min, max, _ := table.TimeRange()
		windowStart, windowEnd = min, max
	}
	hours := (windowEnd - windowStart) / 3.6e6
	total := mean * hours

	if err := u.store.UpdateMetadata(ctx, record.ID, func(meta entity.Metadata) {
		outputs := meta.Outputs()
		outputs["dose_rate_mean"] = mean
		outputs["dose_rate_std"] = std
		outputs["dose_obtained"] = total
	}); err != nil {
		return DoseRateResult{}, normalizeErr(err)
	}

	slog.InfoContext(ctx, "dose rate computed",
		"record_id", record.ID,
		"exposures", len(perExposure),
		"dose_rate_mean_ugyh", mean,
	)

	return DoseRateResult{Mean: mean, Std: std, Total: total}, nil
}
