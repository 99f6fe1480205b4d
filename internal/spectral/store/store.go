package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// Store persists spectral records, artifacts and file metadata in the
// SQLite database. Blobs live separately, in a BlobStore.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateFile(ctx context.Context, file *entity.File) error {
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return pkgerror.NewServer(err)
	}
	return nil
}

func (s *Store) GetFile(ctx context.Context, id string) (entity.File, error) {
	var file entity.File
	err := s.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.File{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.File{}, pkgerror.NewServer(err)
	}
	return file, nil
}

func (s *Store) CreateRecord(ctx context.Context, record *entity.SpectralRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return pkgerror.NewServer(err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (entity.SpectralRecord, error) {
	var record entity.SpectralRecord
	err := s.db.WithContext(ctx).
		Preload("Calib").
		Preload("Detector").
		Preload("RawFile").
		Preload("Artifacts").
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.SpectralRecord{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.SpectralRecord{}, pkgerror.NewServer(err)
	}
	return record, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]entity.SpectralRecord, error) {
	var records []entity.SpectralRecord
	err := s.db.WithContext(ctx).
		Preload("Artifacts").
		Order("created").
		Find(&records).Error
	if err != nil {
		return nil, pkgerror.NewServer(err)
	}
	return records, nil
}

// SetStatus moves a record to the next processing status. The transition is
// validated against the status machine; an invalid move is a conflict, so
// states like "completed without artifacts" stay unrepresentable.
func (s *Store) SetStatus(ctx context.Context, id string, next entity.ProcessingStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record entity.SpectralRecord
		err := tx.First(&record, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerror.ErrNotFound
		}
		if err != nil {
			return pkgerror.NewServer(err)
		}

		if !record.ProcessingStatus.CanTransition(next) {
			return pkgerror.NewBusiness(
				fmt.Sprintf("invalid status transition %s -> %s", record.ProcessingStatus, next),
				pkgerror.CodeConflict,
			)
		}

		err = tx.Model(&entity.SpectralRecord{}).
			Where("id = ?", id).
			Update("processing_status", next).Error
		if err != nil {
			return pkgerror.NewServer(err)
		}
		return nil
	})
}

// UpdateMetadata applies fn to the record's metadata map and persists it.
func (s *Store) UpdateMetadata(ctx context.Context, id string, fn func(meta entity.Metadata)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record entity.SpectralRecord
		err := tx.First(&record, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerror.ErrNotFound
		}
		if err != nil {
			return pkgerror.NewServer(err)
		}

		if record.Metadata == nil {
			record.Metadata = entity.Metadata{}
		}
		fn(record.Metadata)

		err = tx.Model(&entity.SpectralRecord{}).
			Where("id = ?", id).
			Update("metadata", record.Metadata).Error
		if err != nil {
			return pkgerror.NewServer(err)
		}
		return nil
	})
}

// CreateArtifact writes the artifact's file row and the artifact row in one
// transaction. The unique (record, artifact type) index rejects duplicates,
// which keeps artifacts write-once.
func (s *Store) CreateArtifact(ctx context.Context, file *entity.File, artifact *entity.SpectralArtifact) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		artifact.FileID = file.ID
		return tx.Create(artifact).Error
	})
	if err != nil {
		return pkgerror.NewServer(err)
	}
	return nil
}

func (s *Store) GetArtifact(ctx context.Context, recordID string, artifactType entity.ArtifactType) (entity.SpectralArtifact, error) {
	var artifact entity.SpectralArtifact
	err := s.db.WithContext(ctx).
		Preload("File").
		First(&artifact, "spectral_record_id = ? AND artifact_type = ?", recordID, artifactType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.SpectralArtifact{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.SpectralArtifact{}, pkgerror.NewServer(err)
	}
	return artifact, nil
}

func (s *Store) ListArtifacts(ctx context.Context, recordID string, artifactType entity.ArtifactType) ([]entity.SpectralArtifact, error) {
	query := s.db.WithContext(ctx).
		Preload("File").
		Where("spectral_record_id = ?", recordID)
	if artifactType != "" {
		query = query.Where("artifact_type = ?", artifactType)
	}

	var artifacts []entity.SpectralArtifact
	if err := query.Order("created_at").Find(&artifacts).Error; err != nil {
		return nil, pkgerror.NewServer(err)
	}
	return artifacts, nil
}

func (s *Store) CalibByName(ctx context.Context, name string) (entity.DetectorCalib, error) {
	var calib entity.DetectorCalib
	err := s.db.WithContext(ctx).First(&calib, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.DetectorCalib{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.DetectorCalib{}, pkgerror.NewServer(err)
	}
	return calib, nil
}

func (s *Store) DetectorByName(ctx context.Context, name string) (entity.Detector, error) {
	var detector entity.Detector
	err := s.db.WithContext(ctx).First(&detector, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Detector{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.Detector{}, pkgerror.NewServer(err)
	}
	return detector, nil
}
