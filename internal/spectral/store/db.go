package store

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// OpenDB opens (or creates) the SQLite metadata database and migrates the
// pipeline schema.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&entity.File{},
		&entity.Detector{},
		&entity.DetectorCalib{},
		&entity.SpectralRecord{},
		&entity.SpectralArtifact{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
