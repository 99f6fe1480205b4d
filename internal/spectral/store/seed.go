package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkguid"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// SeedCalib is one named calibration in the detector seed catalog.
// Coefficients map channel index to energy in eV.
type SeedCalib struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Coef0       float64 `yaml:"coef0"`
	Coef1       float64 `yaml:"coef1"`
	Coef2       float64 `yaml:"coef2"`
}

// SeedDetector is one detector entry in the seed catalog.
type SeedDetector struct {
	Name   string      `yaml:"name"`
	SN     string      `yaml:"sn"`
	Type   string      `yaml:"type"`
	Calibs []SeedCalib `yaml:"calibs"`
}

// Seed is the parsed detector/calibration catalog file.
type Seed struct {
	Detectors []SeedDetector `yaml:"detectors"`
}

// LoadSeed reads the YAML detector catalog from path.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("detector seed: read %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("detector seed: parse %s: %w", path, err)
	}
	return seed, nil
}

// ApplySeed upserts the catalog by name, so records can reference detectors
// and calibrations at creation time. Existing entries keep their ids;
// coefficients are refreshed from the catalog.
func (s *Store) ApplySeed(ctx context.Context, seed Seed, id pkguid.StringID) error {
	for _, det := range seed.Detectors {
		detector, err := s.DetectorByName(ctx, det.Name)
		if errors.Is(err, pkgerror.ErrNotFound) {
			detector = entity.Detector{
				ID:   id.Generate(),
				Name: det.Name,
				SN:   det.SN,
				Type: det.Type,
			}
			if createErr := s.db.WithContext(ctx).Create(&detector).Error; createErr != nil {
				return pkgerror.NewServer(createErr)
			}
		} else if err != nil {
			return err
		}

		for _, cal := range det.Calibs {
			if err := s.upsertCalib(ctx, detector.ID, cal, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) upsertCalib(ctx context.Context, detectorID string, cal SeedCalib, id pkguid.StringID) error {
	update := map[string]any{
		"description": cal.Description,
		"coef0":       cal.Coef0,
		"coef1":       cal.Coef1,
		"coef2":       cal.Coef2,
	}

	var existing entity.DetectorCalib
	err := s.db.WithContext(ctx).First(&existing, "name = ?", cal.Name).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		calib := entity.DetectorCalib{
			ID:          id.Generate(),
			Name:        cal.Name,
			DetectorID:  &detectorID,
			Description: cal.Description,
			Coef0:       cal.Coef0,
			Coef1:       cal.Coef1,
			Coef2:       cal.Coef2,
		}
		if createErr := s.db.WithContext(ctx).Create(&calib).Error; createErr != nil {
			return pkgerror.NewServer(createErr)
		}
		return nil
	case err != nil:
		return pkgerror.NewServer(err)
	default:
		err = s.db.WithContext(ctx).Model(&entity.DetectorCalib{}).
			Where("id = ?", existing.ID).
			Updates(update).Error
		if err != nil {
			return pkgerror.NewServer(err)
		}
		return nil
	}
}
