// Package candy reads raw detector logs: line-oriented, comma-separated,
// heterogeneous record types sharing one file. Only $CANDY rows (one
// exposure's per-channel counts plus a timestamp and event counter) flow
// further; telemetry and device-identification rows are discarded here.
package candy

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Tag is the leading field marking a spectral exposure line.
const Tag = "$CANDY"

const (
	colTime     = 2 // elapsed time, milliseconds
	colParticle = 3 // particle/event counter
	// firstChannel is the index of the first per-channel count column; the
	// columns before it are descriptor fields set by the detector firmware.
	firstChannel = 10
)

var (
	// ErrMalformedLog means no recognizable spectral header line exists.
	ErrMalformedLog = errors.New("no spectral header line found")
	// ErrEmptySelection means a header was found but no spectral row
	// survived parsing.
	ErrEmptySelection = errors.New("no spectral rows found")
)

// Row is one parsed spectral exposure, before table assembly.
type Row struct {
	TimeMS        float64
	ParticleCount float64
	Channels      []int64
}

// Stats summarizes one parse pass.
type Stats struct {
	TotalLines int64
	Selected   int64
	Skipped    int64
	Columns    int
	Channels   int
}

// Parse scans r for the first $CANDY line to fix the expected column width,
// then re-reads the stream selecting spectral rows of exactly that width.
// Lines with a different field count, or with unparseable numeric fields,
// are skipped and counted; detector firmware occasionally emits truncated
// lines mid-file and those must not abort the whole parse. A missing header
// is fatal (ErrMalformedLog).
func Parse(ctx context.Context, r io.ReadSeeker) ([]Row, Stats, error) {
	width, err := headerWidth(r)
	if err != nil {
		return nil, Stats{}, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{
		Columns:  width,
		Channels: width - firstChannel,
	}

	reader := newReader(r)
	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed lines (bare quotes and the like) are a firmware
			// glitch and get skipped; anything else is an I/O failure of
			// the stream itself and repeats forever, so abort.
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, stats, err
			}
			stats.Skipped++
			slog.WarnContext(ctx, "failed to read log line", "error", err)
			continue
		}

		stats.TotalLines++
		if len(record) != width {
			if strings.TrimSpace(record[0]) == Tag {
				stats.Skipped++
			}
			continue
		}
		if strings.TrimSpace(record[0]) != Tag {
			continue
		}

		row, err := parseRow(record)
		if err != nil {
			stats.Skipped++
			slog.WarnContext(ctx, "failed to parse spectral row", "error", err)
			continue
		}

		stats.Selected++
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, stats, ErrEmptySelection
	}

	return rows, stats, nil
}

// headerWidth finds the first spectral line and returns its field count,
// which fixes the expected column width for the whole file.
func headerWidth(r io.Reader) (int, error) {
	reader := newReader(r)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return 0, ErrMalformedLog
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return 0, err
			}
			continue
		}
		if strings.TrimSpace(record[0]) != Tag {
			continue
		}
		if len(record) <= firstChannel {
			return 0, ErrMalformedLog
		}
		return len(record), nil
	}
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1
	return reader
}

func parseRow(record []string) (Row, error) {
	timeMS, err := strconv.ParseFloat(strings.TrimSpace(record[colTime]), 64)
	if err != nil {
		return Row{}, err
	}

	particles, err := strconv.ParseFloat(strings.TrimSpace(record[colParticle]), 64)
	if err != nil {
		return Row{}, err
	}

	channels := make([]int64, len(record)-firstChannel)
	for i, cell := range record[firstChannel:] {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue // missing cells count as zero
		}
		count, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return Row{}, err
		}
		channels[i] = count
	}

	return Row{
		TimeMS:        timeMS,
		ParticleCount: particles,
		Channels:      channels,
	}, nil
}
