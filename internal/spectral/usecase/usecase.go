package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkguid"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// Store is the metadata persistence boundary.
type Store interface {
	CreateFile(ctx context.Context, file *entity.File) error
	CreateRecord(ctx context.Context, record *entity.SpectralRecord) error
	GetRecord(ctx context.Context, id string) (entity.SpectralRecord, error)
	ListRecords(ctx context.Context) ([]entity.SpectralRecord, error)
	SetStatus(ctx context.Context, id string, next entity.ProcessingStatus) error
	UpdateMetadata(ctx context.Context, id string, fn func(meta entity.Metadata)) error
	CreateArtifact(ctx context.Context, file *entity.File, artifact *entity.SpectralArtifact) error
	GetArtifact(ctx context.Context, recordID string, artifactType entity.ArtifactType) (entity.SpectralArtifact, error)
	ListArtifacts(ctx context.Context, recordID string, artifactType entity.ArtifactType) ([]entity.SpectralArtifact, error)
	CalibByName(ctx context.Context, name string) (entity.DetectorCalib, error)
	DetectorByName(ctx context.Context, name string) (entity.Detector, error)
}

// Blobs is the opaque file-content boundary (raw logs and artifacts).
type Blobs interface {
	Put(ctx context.Context, id string, r io.Reader) (int64, error)
	Open(ctx context.Context, id string) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, id string) error
}

// Publisher schedules asynchronous processing tasks.
type Publisher interface {
	Publish(ctx context.Context, task entity.ProcessingTask) error
}

// Runner executes functions off the request path.
type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
}

type Clock interface {
	Now() time.Time
}

// DoseConfig carries the physical model of the reference detector. The
// defaults reproduce the reference hardware (silicon sensor mass and
// per-exposure integration window) and must be kept for output
// compatibility unless the hardware actually differs.
type DoseConfig struct {
	DetectorMassKg     float64
	IntegrationSeconds float64
}

const (
	DefaultDetectorMassKg     = 1.165e-4
	DefaultIntegrationSeconds = 10.0
)

type Dependency struct {
	Store   Store
	Blobs   Blobs
	Events  Publisher
	Runner  Runner
	Clock   Clock
	ID      pkguid.StringID
	TaskID  pkguid.NumberID
	Dose    DoseConfig
	RootCtx context.Context
}

type Usecase struct {
	store   Store
	blobs   Blobs
	events  Publisher
	runner  Runner
	clock   Clock
	id      pkguid.StringID
	taskID  pkguid.NumberID
	dose    DoseConfig
	rootCtx context.Context
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	dose := dep.Dose
	if dose.DetectorMassKg <= 0 {
		dose.DetectorMassKg = DefaultDetectorMassKg
	}
	if dose.IntegrationSeconds <= 0 {
		dose.IntegrationSeconds = DefaultIntegrationSeconds
	}

	return &Usecase{
		store:   dep.Store,
		blobs:   dep.Blobs,
		events:  dep.Events,
		runner:  dep.Runner,
		clock:   clock,
		id:      dep.ID,
		taskID:  dep.TaskID,
		dose:    dose,
		rootCtx: root,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// CreateRecord stores the raw log, registers the record in pending state and
// schedules exactly one asynchronous processing task for it.
func (u *Usecase) CreateRecord(ctx context.Context, params CreateParams, r io.Reader) (CreateResult, error) {
	if u.store == nil || u.blobs == nil || u.id == nil || u.taskID == nil || u.runner == nil {
		return CreateResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = "Record"
	}

	var calibID, detectorID *string
	if params.CalibName != "" {
		calib, err := u.store.CalibByName(ctx, params.CalibName)
		if errors.Is(err, pkgerror.ErrNotFound) {
			return CreateResult{}, pkgerror.NewInvalidInput(errors.New("unknown calibration"))
		}
		if err != nil {
			return CreateResult{}, normalizeErr(err)
		}
		calibID = &calib.ID
	}
	if params.DetectorName != "" {
		detector, err := u.store.DetectorByName(ctx, params.DetectorName)
		if errors.Is(err, pkgerror.ErrNotFound) {
			return CreateResult{}, pkgerror.NewInvalidInput(errors.New("unknown detector"))
		}
		if err != nil {
			return CreateResult{}, normalizeErr(err)
		}
		detectorID = &detector.ID
	}

	fileID := u.id.Generate()
	size, err := u.blobs.Put(ctx, fileID, r)
	if err != nil {
		return CreateResult{}, pkgerror.NewServer(err)
	}

	file := entity.File{
		ID:         fileID,
		Filename:   params.Filename,
		FileType:   entity.FileTypeLog,
		SourceType: entity.SourceUploaded,
		Owner:      params.Owner,
		SizeBytes:  size,
		Metadata:   entity.Metadata{},
	}
	if err := u.store.CreateFile(ctx, &file); err != nil {
		return CreateResult{}, normalizeErr(err)
	}

	record := entity.SpectralRecord{
		ID:                  u.id.Generate(),
		Name:                name,
		Description:         params.Description,
		Owner:               params.Owner,
		Author:              params.Author,
		DetectorID:          detectorID,
		CalibID:             calibID,
		RawFileID:           &file.ID,
		TimeTracked:         params.TimeTracked,
		TimeStart:           params.TimeStart,
		TimeOfInterestStart: params.TimeOfInterestStart,
		TimeOfInterestEnd:   params.TimeOfInterestEnd,
		ProcessingStatus:    entity.ProcessingPending,
		Metadata:            entity.Metadata{},
	}
	if err := u.store.CreateRecord(ctx, &record); err != nil {
		return CreateResult{}, normalizeErr(err)
	}

	task := entity.ProcessingTask{
		EventID:  u.taskID.Generate(),
		RecordID: record.ID,
	}
	u.runner.Go(u.rootCtx, func(ctx context.Context) error {
		if err := u.events.Publish(ctx, task); err != nil {
			slog.ErrorContext(ctx, "failed to schedule record processing", "record_id", task.RecordID, "error", err)
			return err
		}
		return nil
	})

	return CreateResult{RecordID: record.ID, Status: record.ProcessingStatus}, nil
}

// Record returns one record with its relations.
func (u *Usecase) Record(ctx context.Context, recordID string) (entity.SpectralRecord, error) {
	if recordID == "" {
		return entity.SpectralRecord{}, pkgerror.NewInvalidInput(errors.New("record id is required"))
	}

	record, err := u.store.GetRecord(ctx, recordID)
	if err != nil {
		return entity.SpectralRecord{}, mapStoreErr(err)
	}
	return record, nil
}

// Records lists all records, oldest first.
func (u *Usecase) Records(ctx context.Context) ([]entity.SpectralRecord, error) {
	records, err := u.store.ListRecords(ctx)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return records, nil
}

// Artifacts lists a record's artifacts, optionally of one type.
func (u *Usecase) Artifacts(ctx context.Context, recordID string, artifactType entity.ArtifactType) ([]entity.SpectralArtifact, error) {
	if recordID == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("record id is required"))
	}

	if _, err := u.store.GetRecord(ctx, recordID); err != nil {
		return nil, mapStoreErr(err)
	}

	artifacts, err := u.store.ListArtifacts(ctx, recordID, artifactType)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return artifacts, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("record not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
