package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MetadataKeyError is the reserved metadata key holding the failure message
// of the last processing attempt.
const MetadataKeyError = "processing_error"

// MetadataKeyOutputs is the reserved metadata key holding derived results
// written by post-processing (dose rate, parse statistics).
const MetadataKeyOutputs = "outputs"

// Metadata is a free-form JSON map stored in a text column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("metadata: unsupported column type")
	}

	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Outputs returns the nested outputs map, creating it if absent.
func (m Metadata) Outputs() map[string]any {
	if out, ok := m[MetadataKeyOutputs].(map[string]any); ok {
		return out
	}
	out := map[string]any{}
	m[MetadataKeyOutputs] = out
	return out
}

// SpectralRecord is the ingestion unit: one raw detector log registered for
// processing into a spectral artifact.
type SpectralRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:80"`
	Description string `gorm:"type:text"`

	// Owner is the advisory owning-organization slug. Access control happens
	// outside this service.
	Owner  string `gorm:"index;size:80"`
	Author string `gorm:"size:80"`

	DetectorID *string `gorm:"size:36"`
	Detector   *Detector

	CalibID *string `gorm:"size:36"`
	Calib   *DetectorCalib

	RawFileID *string `gorm:"size:36"`
	RawFile   *File

	// TimeTracked marks records whose time axis must be aligned to absolute
	// time using TimeStart.
	TimeTracked bool
	TimeStart   *time.Time

	// Time of interest: a sub-range of the record's time axis, in
	// milliseconds on the artifact's zero-based time_ms column.
	TimeOfInterestStart *float64
	TimeOfInterestEnd   *float64

	ProcessingStatus ProcessingStatus `gorm:"index;size:16"`
	Metadata         Metadata         `gorm:"type:text"`
	Created          time.Time        `gorm:"autoCreateTime;index"`

	Artifacts []SpectralArtifact `gorm:"constraint:OnDelete:CASCADE"`
}

// TimeOfInterest returns the [start, end] window when both bounds are set.
func (r *SpectralRecord) TimeOfInterest() (start, end float64, ok bool) {
	if r.TimeOfInterestStart == nil || r.TimeOfInterestEnd == nil {
		return 0, 0, false
	}
	return *r.TimeOfInterestStart, *r.TimeOfInterestEnd, true
}

// TimeStartMS returns the absolute record start as unix milliseconds, or 0
// when the record is not time tracked.
func (r *SpectralRecord) TimeStartMS() float64 {
	if !r.TimeTracked || r.TimeStart == nil {
		return 0
	}
	return float64(r.TimeStart.UnixMilli())
}
