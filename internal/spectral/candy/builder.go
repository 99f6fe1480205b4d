package candy

import (
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// BuildTable assembles parsed rows into the wide spectral table: rows
// re-indexed 0..K-1, time shifted so the series starts at zero, channel
// columns in parse order. Row order is preserved; time normalization never
// reorders.
func BuildTable(rows []Row) entity.SpectralTable {
	channels := 0
	for _, row := range rows {
		if len(row.Channels) > channels {
			channels = len(row.Channels)
		}
	}

	table := entity.SpectralTable{
		IDs:           make([]int64, len(rows)),
		TimeMS:        make([]float64, len(rows)),
		ParticleCount: make([]float64, len(rows)),
		Channels:      make([][]int64, channels),
	}
	for c := range table.Channels {
		table.Channels[c] = make([]int64, len(rows))
	}

	minTime := 0.0
	for i, row := range rows {
		if i == 0 || row.TimeMS < minTime {
			minTime = row.TimeMS
		}
		table.IDs[i] = int64(i)
		table.TimeMS[i] = row.TimeMS
		table.ParticleCount[i] = row.ParticleCount
		for c, count := range row.Channels {
			table.Channels[c][i] = count
		}
	}

	// Zero-base the time axis. Absolute alignment, when needed, comes from
	// the record's time_start field, not from the table.
	for i := range table.TimeMS {
		table.TimeMS[i] -= minTime
	}

	return table
}
