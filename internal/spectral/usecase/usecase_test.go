package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/colfile"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

type testStore struct {
	mu        sync.RWMutex
	files     map[string]entity.File
	records   map[string]entity.SpectralRecord
	artifacts map[string]entity.SpectralArtifact
	calibs    map[string]entity.DetectorCalib
	detectors map[string]entity.Detector
}

func newFakeStore() *testStore {
	return &testStore{
		files:     make(map[string]entity.File),
		records:   make(map[string]entity.SpectralRecord),
		artifacts: make(map[string]entity.SpectralArtifact),
		calibs:    make(map[string]entity.DetectorCalib),
		detectors: make(map[string]entity.Detector),
	}
}

func artifactKey(recordID string, artifactType entity.ArtifactType) string {
	return recordID + "/" + string(artifactType)
}

func (s *testStore) CreateFile(ctx context.Context, file *entity.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = *file
	return nil
}

func (s *testStore) CreateRecord(ctx context.Context, record *entity.SpectralRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

func (s *testStore) GetRecord(ctx context.Context, id string) (entity.SpectralRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return entity.SpectralRecord{}, pkgerror.ErrNotFound
	}

	if record.CalibID != nil {
		for _, calib := range s.calibs {
			if calib.ID == *record.CalibID {
				c := calib
				record.Calib = &c
			}
		}
	}
	if record.RawFileID != nil {
		if file, ok := s.files[*record.RawFileID]; ok {
			record.RawFile = &file
		}
	}
	for key, artifact := range s.artifacts {
		if strings.HasPrefix(key, id+"/") {
			record.Artifacts = append(record.Artifacts, artifact)
		}
	}
	return record, nil
}

func (s *testStore) ListRecords(ctx context.Context) ([]entity.SpectralRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]entity.SpectralRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	return records, nil
}

func (s *testStore) SetStatus(ctx context.Context, id string, next entity.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return pkgerror.ErrNotFound
	}
	if !record.ProcessingStatus.CanTransition(next) {
		return pkgerror.NewBusiness(
			fmt.Sprintf("invalid status transition %s -> %s", record.ProcessingStatus, next),
			pkgerror.CodeConflict,
		)
	}
	record.ProcessingStatus = next
	s.records[id] = record
	return nil
}

func (s *testStore) UpdateMetadata(ctx context.Context, id string, fn func(meta entity.Metadata)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return pkgerror.ErrNotFound
	}
	if record.Metadata == nil {
		record.Metadata = entity.Metadata{}
	}
	fn(record.Metadata)
	s.records[id] = record
	return nil
}

func (s *testStore) CreateArtifact(ctx context.Context, file *entity.File, artifact *entity.SpectralArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := artifactKey(artifact.SpectralRecordID, artifact.ArtifactType)
	if _, ok := s.artifacts[key]; ok {
		return pkgerror.NewServer(errors.New("artifact already exists"))
	}
	artifact.FileID = file.ID
	s.files[file.ID] = *file
	s.artifacts[key] = *artifact
	return nil
}

func (s *testStore) GetArtifact(ctx context.Context, recordID string, artifactType entity.ArtifactType) (entity.SpectralArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, ok := s.artifacts[artifactKey(recordID, artifactType)]
	if !ok {
		return entity.SpectralArtifact{}, pkgerror.ErrNotFound
	}
	if file, ok := s.files[artifact.FileID]; ok {
		artifact.File = &file
	}
	return artifact, nil
}

func (s *testStore) ListArtifacts(ctx context.Context, recordID string, artifactType entity.ArtifactType) ([]entity.SpectralArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var artifacts []entity.SpectralArtifact
	for key, artifact := range s.artifacts {
		if !strings.HasPrefix(key, recordID+"/") {
			continue
		}
		if artifactType != "" && artifact.ArtifactType != artifactType {
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

func (s *testStore) CalibByName(ctx context.Context, name string) (entity.DetectorCalib, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calib, ok := s.calibs[name]
	if !ok {
		return entity.DetectorCalib{}, pkgerror.ErrNotFound
	}
	return calib, nil
}

func (s *testStore) DetectorByName(ctx context.Context, name string) (entity.Detector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	detector, ok := s.detectors[name]
	if !ok {
		return entity.Detector{}, pkgerror.ErrNotFound
	}
	return detector, nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.data[id]; ok {
		return 0, errors.New("blob already exists")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.data[id] = data
	return int64(len(data)), nil
}

type blobReader struct {
	*bytes.Reader
}

func (blobReader) Close() error { return nil }

func (b *memBlobs) Open(ctx context.Context, id string) (io.ReadSeekCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.data[id]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", id)
	}
	return blobReader{bytes.NewReader(data)}, nil
}

func (b *memBlobs) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, id)
	return nil
}

type testPublisher struct {
	mu    sync.Mutex
	tasks []entity.ProcessingTask
}

func (p *testPublisher) Publish(ctx context.Context, task entity.ProcessingTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

// syncRunner runs scheduled functions inline, so tests see their effects
// immediately.
type syncRunner struct{}

func (syncRunner) Go(ctx context.Context, f func(ctx context.Context) error) {
	_ = f(ctx)
}

type seqStringID struct {
	mu sync.Mutex
	n  int
}

func (s *seqStringID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type seqNumberID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqNumberID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func newTestUsecase(store *testStore, blobs *memBlobs, events *testPublisher) *Usecase {
	return New(Dependency{
		Store:   store,
		Blobs:   blobs,
		Events:  events,
		Runner:  syncRunner{},
		Clock:   fixedClock{now: time.Unix(1700000000, 0)},
		ID:      &seqStringID{},
		TaskID:  &seqNumberID{},
		RootCtx: context.Background(),
	})
}

func candyLog(lines ...string) string {
	return strings.Join(lines, "\n")
}

// candyLine builds one spectral log line with three channels.
func candyLine(timeMS, particles string, ch0, ch1, ch2 string) string {
	return strings.Join([]string{
		"$CANDY", "56", timeMS, particles, "0", "0", "0", "0", "0", "0", ch0, ch1, ch2,
	}, ",")
}

func TestCreateRecordSchedulesProcessingOnce(t *testing.T) {
	store := newFakeStore()
	store.calibs["cal"] = entity.DetectorCalib{ID: "cal-id", Name: "cal", Coef1: 16000}
	store.detectors["det"] = entity.Detector{ID: "det-id", Name: "det"}
	blobs := newMemBlobs()
	events := &testPublisher{}
	uc := newTestUsecase(store, blobs, events)

	result, err := uc.CreateRecord(context.Background(), CreateParams{
		Name:         "flight 42",
		Filename:     "flight42.log",
		CalibName:    "cal",
		DetectorName: "det",
	}, strings.NewReader(candyLine("100", "1", "1", "2", "3")))
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	if result.Status != entity.ProcessingPending {
		t.Fatalf("expected pending status, got %s", result.Status)
	}

	record, err := store.GetRecord(context.Background(), result.RecordID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.CalibID == nil || *record.CalibID != "cal-id" {
		t.Fatalf("calibration not linked: %+v", record)
	}
	if record.RawFileID == nil {
		t.Fatal("raw file not linked")
	}
	if _, ok := blobs.data[*record.RawFileID]; !ok {
		t.Fatal("raw log blob not stored")
	}

	if len(events.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(events.tasks))
	}
	if events.tasks[0].RecordID != result.RecordID || events.tasks[0].EventID == 0 {
		t.Fatalf("unexpected task: %+v", events.tasks[0])
	}
}

func TestCreateRecordUnknownCalib(t *testing.T) {
	uc := newTestUsecase(newFakeStore(), newMemBlobs(), &testPublisher{})

	_, err := uc.CreateRecord(context.Background(), CreateParams{CalibName: "nope"}, strings.NewReader("x"))
	var gerr *pkgerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != pkgerror.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProcessCompletesAndWritesArtifact(t *testing.T) {
	store := newFakeStore()
	blobs := newMemBlobs()
	uc := newTestUsecase(store, blobs, &testPublisher{})
	ctx := context.Background()

	log := candyLog(
		"$HELLO,AIRDOS,C,0042",
		candyLine("25583", "12", "1", "0", "3"),
		candyLine("25606", "7", "0", "2", "0"),
		candyLine("25580", "4", "5", "0", "0"),
	)
	if _, err := blobs.Put(ctx, "raw-1", strings.NewReader(log)); err != nil {
		t.Fatalf("put raw blob: %v", err)
	}
	rawID := "raw-1"
	store.files[rawID] = entity.File{ID: rawID, FileType: entity.FileTypeLog}
	store.records["rec-1"] = entity.SpectralRecord{
		ID:               "rec-1",
		RawFileID:        &rawID,
		ProcessingStatus: entity.ProcessingPending,
	}

	if err := uc.Process(ctx, "rec-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	record, err := store.GetRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.ProcessingStatus != entity.ProcessingCompleted {
		t.Fatalf("expected completed, got %s", record.ProcessingStatus)
	}
	if record.Metadata["processing_started_at"] == nil {
		t.Fatalf("expected processing timestamps, got %v", record.Metadata)
	}
	if got := record.Metadata["rows_selected"]; got != int64(3) {
		t.Fatalf("expected 3 selected rows in metadata, got %v", got)
	}

	artifact, err := store.GetArtifact(ctx, "rec-1", entity.ArtifactSpectral)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if artifact.File == nil || artifact.File.FileType != entity.FileTypeSpectral {
		t.Fatalf("unexpected artifact file: %+v", artifact.File)
	}

	blob, err := blobs.Open(ctx, artifact.FileID)
	if err != nil {
		t.Fatalf("open artifact blob: %v", err)
	}
	table, err := colfile.Read(blob)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	wantTimes := []float64{3, 26, 0}
	if table.Rows() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Rows())
	}
	for i, want := range wantTimes {
		if table.TimeMS[i] != want {
			t.Fatalf("expected zero-based times %v, got %v", wantTimes, table.TimeMS)
		}
	}
}

func TestProcessFailureMarksRecordFailed(t *testing.T) {
	store := newFakeStore()
	blobs := newMemBlobs()
	uc := newTestUsecase(store, blobs, &testPublisher{})
	ctx := context.Background()

	// No $CANDY line at all, so parsing cannot even start.
	if _, err := blobs.Put(ctx, "raw-1", strings.NewReader("$HELLO,AIRDOS,C,0042")); err != nil {
		t.Fatalf("put raw blob: %v", err)
	}
	rawID := "raw-1"
	store.files[rawID] = entity.File{ID: rawID, FileType: entity.FileTypeLog}
	store.records["rec-1"] = entity.SpectralRecord{
		ID:               "rec-1",
		RawFileID:        &rawID,
		ProcessingStatus: entity.ProcessingPending,
	}

	if err := uc.Process(ctx, "rec-1"); err == nil {
		t.Fatal("expected process to fail")
	}

	record, err := store.GetRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.ProcessingStatus != entity.ProcessingFailed {
		t.Fatalf("expected failed, got %s", record.ProcessingStatus)
	}
	msg, ok := record.Metadata[entity.MetadataKeyError].(string)
	if !ok || msg == "" {
		t.Fatalf("expected failure message in metadata, got %v", record.Metadata)
	}

	// Failed is terminal, a redelivered task cannot restart it.
	if err := uc.Process(ctx, "rec-1"); err == nil {
		t.Fatal("expected re-processing a failed record to be rejected")
	}
	record, _ = store.GetRecord(ctx, "rec-1")
	if record.ProcessingStatus != entity.ProcessingFailed {
		t.Fatalf("status changed on redelivery: %s", record.ProcessingStatus)
	}
}

func TestProcessRejectsNonLogRawFile(t *testing.T) {
	store := newFakeStore()
	uc := newTestUsecase(store, newMemBlobs(), &testPublisher{})
	ctx := context.Background()

	rawID := "raw-1"
	store.files[rawID] = entity.File{ID: rawID, FileType: entity.FileTypeSpectral}
	store.records["rec-1"] = entity.SpectralRecord{
		ID:               "rec-1",
		RawFileID:        &rawID,
		ProcessingStatus: entity.ProcessingPending,
	}

	if err := uc.Process(ctx, "rec-1"); err == nil {
		t.Fatal("expected process to fail")
	}
	record, _ := store.GetRecord(ctx, "rec-1")
	if record.ProcessingStatus != entity.ProcessingFailed {
		t.Fatalf("expected failed, got %s", record.ProcessingStatus)
	}
}

func TestRecordNotFound(t *testing.T) {
	uc := newTestUsecase(newFakeStore(), newMemBlobs(), &testPublisher{})

	_, err := uc.Record(context.Background(), "missing")
	var gerr *pkgerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != pkgerror.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
