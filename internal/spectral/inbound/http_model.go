package inbound

import (
	"net/http"
	"time"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/usecase"
)

type RecordCreatedResponse struct {
	RecordID string                  `json:"record_id"`
	Status   entity.ProcessingStatus `json:"processing_status"`
}

func (RecordCreatedResponse) StatusCode() int {
	return http.StatusAccepted
}

func (RecordCreatedResponse) Message() string {
	return "record accepted, processing scheduled"
}

type RecordSummary struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Status         entity.ProcessingStatus `json:"processing_status"`
	Owner          string                  `json:"owner,omitempty"`
	Author         string                  `json:"author,omitempty"`
	Created        time.Time               `json:"created"`
	ArtifactsCount int                     `json:"artifacts_count"`
}

type RecordListResponse []RecordSummary

type RecordDetailResponse struct {
	RecordSummary
	Description         string          `json:"description,omitempty"`
	RawFileID           *string         `json:"raw_file_id"`
	TimeTracked         bool            `json:"time_tracked"`
	TimeStart           *time.Time      `json:"time_start"`
	TimeOfInterestStart *float64        `json:"time_of_interest_start"`
	TimeOfInterestEnd   *float64        `json:"time_of_interest_end"`
	Calib               *CalibResponse  `json:"calib"`
	Metadata            entity.Metadata `json:"metadata"`
}

type CalibResponse struct {
	Name  string  `json:"name"`
	Coef0 float64 `json:"coef0"`
	Coef1 float64 `json:"coef1"`
	Coef2 float64 `json:"coef2"`
}

type ArtifactResponse struct {
	ID           string              `json:"id"`
	ArtifactType entity.ArtifactType `json:"artifact_type"`
	CreatedAt    time.Time           `json:"created_at"`
	File         *FileResponse       `json:"file"`
}

type FileResponse struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	FileType  entity.FileType `json:"file_type"`
	SizeBytes int64           `json:"size_bytes"`
	Metadata  entity.Metadata `json:"metadata"`
}

type SpectrumResponse struct {
	SpectrumValues [][2]float64 `json:"spectrum_values"`
	TotalTime      float64      `json:"total_time"`
	Calib          bool         `json:"calib"`
}

type EvolutionResponse struct {
	EvolutionValues [][2]float64 `json:"evolution_values"`
	TotalTime       float64      `json:"total_time"`
	TimeTracked     bool         `json:"time_tracked"`
	TimeOfInterest  *[2]float64  `json:"time_of_interest"`
}

type HistogramResponse struct {
	HistogramValues [][3]float64           `json:"histogram_values"`
	Metadata        *HistogramMetaResponse `json:"metadata,omitempty"`
}

type HistogramMetaResponse struct {
	FilteredRecords int        `json:"filtered_records"`
	TimeRange       [2]float64 `json:"time_range"`
	TimeBins        int        `json:"time_bins"`
	Channels        int        `json:"channels"`
	NonZeroPoints   int        `json:"non_zero_points"`
}

type DoseRateResponse struct {
	DoseRateMean float64 `json:"dose_rate_mean"`
	DoseRateStd  float64 `json:"dose_rate_std"`
	DoseObtained float64 `json:"dose_obtained"`
}

func toRecordSummary(record entity.SpectralRecord) RecordSummary {
	return RecordSummary{
		ID:             record.ID,
		Name:           record.Name,
		Status:         record.ProcessingStatus,
		Owner:          record.Owner,
		Author:         record.Author,
		Created:        record.Created,
		ArtifactsCount: len(record.Artifacts),
	}
}

func toRecordDetail(record entity.SpectralRecord) RecordDetailResponse {
	detail := RecordDetailResponse{
		RecordSummary:       toRecordSummary(record),
		Description:         record.Description,
		RawFileID:           record.RawFileID,
		TimeTracked:         record.TimeTracked,
		TimeStart:           record.TimeStart,
		TimeOfInterestStart: record.TimeOfInterestStart,
		TimeOfInterestEnd:   record.TimeOfInterestEnd,
		Metadata:            record.Metadata,
	}
	if record.Calib != nil {
		detail.Calib = &CalibResponse{
			Name:  record.Calib.Name,
			Coef0: record.Calib.Coef0,
			Coef1: record.Calib.Coef1,
			Coef2: record.Calib.Coef2,
		}
	}
	return detail
}

func toArtifactResponse(artifact entity.SpectralArtifact) ArtifactResponse {
	resp := ArtifactResponse{
		ID:           artifact.ID,
		ArtifactType: artifact.ArtifactType,
		CreatedAt:    artifact.CreatedAt,
	}
	if artifact.File != nil {
		resp.File = &FileResponse{
			ID:        artifact.File.ID,
			Filename:  artifact.File.Filename,
			FileType:  artifact.File.FileType,
			SizeBytes: artifact.File.SizeBytes,
			Metadata:  artifact.File.Metadata,
		}
	}
	return resp
}

func toHistogramResponse(result usecase.HistogramResult, withMeta bool) HistogramResponse {
	resp := HistogramResponse{HistogramValues: result.Values}
	if withMeta {
		resp.Metadata = &HistogramMetaResponse{
			FilteredRecords: result.Meta.FilteredRows,
			TimeRange:       result.Meta.TimeRange,
			TimeBins:        result.Meta.Bins,
			Channels:        result.Meta.Channels,
			NonZeroPoints:   result.Meta.NonZero,
		}
	}
	return resp
}
