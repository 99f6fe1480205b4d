package inbound

import (
	"context"
	"io"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgrouter"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/usecase"
)

type uc interface {
	CreateRecord(ctx context.Context, params usecase.CreateParams, r io.Reader) (usecase.CreateResult, error)
	Record(ctx context.Context, recordID string) (entity.SpectralRecord, error)
	Records(ctx context.Context) ([]entity.SpectralRecord, error)
	Artifacts(ctx context.Context, recordID string, artifactType entity.ArtifactType) ([]entity.SpectralArtifact, error)
	Spectrum(ctx context.Context, recordID string, filter usecase.TimeFilter, logarithm bool) (usecase.SpectrumResult, error)
	Evolution(ctx context.Context, recordID string, filter usecase.TimeFilter, logarithm bool) (usecase.EvolutionResult, error)
	Histogram(ctx context.Context, recordID string, bins int, filter usecase.TimeFilter) (usecase.HistogramResult, error)
	SimpleHistogram(ctx context.Context, recordID string) (usecase.HistogramResult, error)
	DoseRate(ctx context.Context, recordID string) (usecase.DoseRateResult, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/records", end.CreateRecord)
	r.GET("/records", end.ListRecords)
	r.GET("/records/:id", end.RecordDetail)
	r.GET("/records/:id/artifacts", end.Artifacts)

	r.GET("/records/:id/spectrum", end.Spectrum)   // ?time_start=&time_end=&logarithm=
	r.GET("/records/:id/evolution", end.Evolution) // ?time_start=&time_end=&logarithm=
	r.GET("/records/:id/histogram", end.Histogram) // ?time_bins=&time_start=&time_end=
	r.GET("/records/:id/histogram/simple", end.SimpleHistogram)

	r.POST("/records/:id/dose-rate", end.DoseRate)
}
