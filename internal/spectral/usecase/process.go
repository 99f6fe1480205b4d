package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/candy"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/colfile"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// Handle lets the processing consumer drive the state machine directly.
func (u *Usecase) Handle(ctx context.Context, task entity.ProcessingTask) error {
	return u.Process(ctx, task.RecordID)
}

// Process runs the ingestion state machine for one record:
// pending → processing → completed | failed. Any failure between the first
// transition and artifact creation marks the record failed, records the
// error message into its metadata under the reserved key, and returns the
// error so the task runner's own observability sees it too. There is no
// automatic retry; a failed record stays failed.
func (u *Usecase) Process(ctx context.Context, recordID string) error {
	record, err := u.store.GetRecord(ctx, recordID)
	if err != nil {
		return mapStoreErr(err)
	}

	if err := u.store.SetStatus(ctx, record.ID, entity.ProcessingInProgress); err != nil {
		return err
	}

	startedAt := u.clock.Now()
	slog.InfoContext(ctx, "record processing started", "record_id", record.ID)

	stats, err := u.buildArtifact(ctx, record)
	if err != nil {
		if metaErr := u.store.UpdateMetadata(ctx, record.ID, func(meta entity.Metadata) {
			meta[entity.MetadataKeyError] = err.Error()
		}); metaErr != nil {
			slog.ErrorContext(ctx, "failed to record processing error", "record_id", record.ID, "error", metaErr)
		}
		if statusErr := u.store.SetStatus(ctx, record.ID, entity.ProcessingFailed); statusErr != nil {
			slog.ErrorContext(ctx, "failed to mark record failed", "record_id", record.ID, "error", statusErr)
		}
		return err
	}

	if err := u.store.UpdateMetadata(ctx, record.ID, func(meta entity.Metadata) {
		meta["processing_started_at"] = startedAt.Unix()
		meta["processing_finished_at"] = u.clock.Now().Unix()
		meta["rows_total"] = stats.TotalLines
		meta["rows_selected"] = stats.Selected
		meta["rows_skipped"] = stats.Skipped
		meta["channels"] = stats.Channels
	}); err != nil {
		slog.WarnContext(ctx, "failed to stamp processing times", "record_id", record.ID, "error", err)
	}

	if err := u.store.SetStatus(ctx, record.ID, entity.ProcessingCompleted); err != nil {
		return err
	}

	slog.InfoContext(ctx, "record processing completed", "record_id", record.ID)
	return nil
}

// buildArtifact parses the raw log, builds the spectral table and persists
// it as the record's columnar artifact. Either the whole chain succeeds or
// nothing is committed; a blob written for an artifact whose rows fail to
// commit is removed again.
func (u *Usecase) buildArtifact(ctx context.Context, record entity.SpectralRecord) (candy.Stats, error) {
	if record.RawFileID == nil || record.RawFile == nil || record.RawFile.FileType != entity.FileTypeLog {
		return candy.Stats{}, errors.New("no valid raw log file found")
	}

	raw, err := u.blobs.Open(ctx, *record.RawFileID)
	if err != nil {
		return candy.Stats{}, err
	}
	defer func() { _ = raw.Close() }()

	rows, stats, err := candy.Parse(ctx, raw)
	if err != nil {
		return stats, err
	}

	table := candy.BuildTable(rows)
	slog.InfoContext(ctx, "spectral table built",
		"record_id", record.ID,
		"rows", table.Rows(),
		"channels", table.ChannelCount(),
		"skipped_lines", stats.Skipped,
	)

	var buf bytes.Buffer
	if err := colfile.Write(&buf, table); err != nil {
		return stats, err
	}

	fileID := u.id.Generate()
	size, err := u.blobs.Put(ctx, fileID, &buf)
	if err != nil {
		return stats, err
	}

	timeMin, timeMax, _ := table.TimeRange()
	channelNames := make([]string, table.ChannelCount())
	for i := range channelNames {
		channelNames[i] = entity.ChannelName(i)
	}

	file := entity.File{
		ID:         fileID,
		Filename:   fmt.Sprintf("spectral_%s.dspc", record.ID),
		FileType:   entity.FileTypeSpectral,
		SourceType: entity.SourceGenerated,
		Owner:      record.Owner,
		SizeBytes:  size,
		Metadata: entity.Metadata{
			"source_record_id": record.ID,
			"data_type":        "spectral_columnar_wide",
			"records_count":    table.Rows(),
			"channels_count":   table.ChannelCount(),
			"time_range_ms":    []float64{timeMin, timeMax},
			"channel_columns":  channelNames,
			"lines_total":      stats.TotalLines,
			"lines_selected":   stats.Selected,
			"lines_skipped":    stats.Skipped,
		},
	}
	artifact := entity.SpectralArtifact{
		ID:               u.id.Generate(),
		SpectralRecordID: record.ID,
		ArtifactType:     entity.ArtifactSpectral,
	}
	if err := u.store.CreateArtifact(ctx, &file, &artifact); err != nil {
		if cleanupErr := u.blobs.Remove(ctx, fileID); cleanupErr != nil {
			slog.WarnContext(ctx, "failed to remove orphan artifact blob", "file_id", fileID, "error", cleanupErr)
		}
		return stats, err
	}

	return stats, nil
}
