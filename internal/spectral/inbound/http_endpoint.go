package inbound

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgerror"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgrouter"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/usecase"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) CreateRecord(ctx context.Context, r *http.Request) (any, error) {
	reader, params, cleanup, err := extractUpload(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, err := h.uc.CreateRecord(ctx, params, reader)
	if err != nil {
		return nil, err
	}

	return RecordCreatedResponse{RecordID: result.RecordID, Status: result.Status}, nil
}

func (h *HTTPEndpoint) ListRecords(ctx context.Context, r *http.Request) (any, error) {
	records, err := h.uc.Records(ctx)
	if err != nil {
		return nil, err
	}

	resp := make(RecordListResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toRecordSummary(record))
	}

	return resp, nil
}

func (h *HTTPEndpoint) RecordDetail(ctx context.Context, r *http.Request) (any, error) {
	record, err := h.uc.Record(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	return toRecordDetail(record), nil
}

func (h *HTTPEndpoint) Artifacts(ctx context.Context, r *http.Request) (any, error) {
	artifactType := entity.ArtifactType(strings.TrimSpace(r.URL.Query().Get("type")))

	artifacts, err := h.uc.Artifacts(ctx, pkgrouter.GetParam(ctx, "id"), artifactType)
	if err != nil {
		return nil, err
	}

	resp := make([]ArtifactResponse, 0, len(artifacts))
	for _, artifact := range artifacts {
		resp = append(resp, toArtifactResponse(artifact))
	}

	return resp, nil
}

func (h *HTTPEndpoint) Spectrum(ctx context.Context, r *http.Request) (any, error) {
	filter, err := parseTimeFilter(r.URL.Query())
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Spectrum(ctx, pkgrouter.GetParam(ctx, "id"), filter, parseBool(r.URL.Query().Get("logarithm")))
	if err != nil {
		return nil, err
	}

	return SpectrumResponse{
		SpectrumValues: result.Values,
		TotalTime:      result.TotalTime,
		Calib:          result.Calibrated,
	}, nil
}

func (h *HTTPEndpoint) Evolution(ctx context.Context, r *http.Request) (any, error) {
	filter, err := parseTimeFilter(r.URL.Query())
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Evolution(ctx, pkgrouter.GetParam(ctx, "id"), filter, parseBool(r.URL.Query().Get("logarithm")))
	if err != nil {
		return nil, err
	}

	return EvolutionResponse{
		EvolutionValues: result.Values,
		TotalTime:       result.TotalTime,
		TimeTracked:     result.TimeTracked,
		TimeOfInterest:  result.TimeOfInterest,
	}, nil
}

func (h *HTTPEndpoint) Histogram(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()

	filter, err := parseTimeFilter(query)
	if err != nil {
		return nil, err
	}

	bins := 100
	if raw := strings.TrimSpace(query.Get("time_bins")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return nil, pkgerror.NewInvalidInput(errors.New("invalid time_bins"))
		}
		bins = value
	}

	result, err := h.uc.Histogram(ctx, pkgrouter.GetParam(ctx, "id"), bins, filter)
	if err != nil {
		return nil, err
	}

	return toHistogramResponse(result, true), nil
}

func (h *HTTPEndpoint) SimpleHistogram(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.SimpleHistogram(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	return toHistogramResponse(result, false), nil
}

func (h *HTTPEndpoint) DoseRate(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.DoseRate(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	return DoseRateResponse{
		DoseRateMean: result.Mean,
		DoseRateStd:  result.Std,
		DoseObtained: result.Total,
	}, nil
}

func parseTimeFilter(query url.Values) (usecase.TimeFilter, error) {
	filter := usecase.TimeFilter{}

	start, err := parseOptionalFloat(query.Get("time_start"), "time_start")
	if err != nil {
		return filter, err
	}
	end, err := parseOptionalFloat(query.Get("time_end"), "time_end")
	if err != nil {
		return filter, err
	}

	filter.Start = start
	filter.End = end

	return filter, nil
}

func parseOptionalFloat(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, pkgerror.NewInvalidInput(errors.New("invalid " + field))
	}

	return &value, nil
}

func parseBool(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

// extractUpload pulls the raw log stream and record parameters out of the
// request. Multipart uploads carry the parameters as form fields next to the
// "file" part; plain uploads carry them as query parameters with the whole
// body as log content.
func extractUpload(r *http.Request) (io.Reader, usecase.CreateParams, func(), error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return extractMultipartUpload(r)
		}
	}

	if r.Body == nil {
		return nil, usecase.CreateParams{}, func() {}, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	params, err := parseCreateParams(r.URL.Query().Get, "")
	if err != nil {
		return nil, usecase.CreateParams{}, func() {}, err
	}

	return r.Body, params, func() {}, nil
}

func extractMultipartUpload(r *http.Request) (io.Reader, usecase.CreateParams, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, usecase.CreateParams{}, func() {}, pkgerror.NewInvalidFormat()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, usecase.CreateParams{}, func() {}, pkgerror.NewInvalidInput(errors.New("file part is required"))
	}

	params, err := parseCreateParams(r.FormValue, header.Filename)
	if err != nil {
		_ = file.Close()
		return nil, usecase.CreateParams{}, func() {}, err
	}

	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}

	return file, params, cleanup, nil
}

func parseCreateParams(field func(string) string, filename string) (usecase.CreateParams, error) {
	params := usecase.CreateParams{
		Name:         strings.TrimSpace(field("name")),
		Description:  strings.TrimSpace(field("description")),
		Owner:        strings.TrimSpace(field("owner")),
		Author:       strings.TrimSpace(field("author")),
		Filename:     filename,
		DetectorName: strings.TrimSpace(field("detector")),
		CalibName:    strings.TrimSpace(field("calib")),
		TimeTracked:  parseBool(field("time_tracked")),
	}

	if raw := strings.TrimSpace(field("time_start")); raw != "" {
		value, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, pkgerror.NewInvalidInput(errors.New("invalid time_start, want RFC3339"))
		}
		params.TimeStart = &value
	}

	start, err := parseOptionalFloat(field("time_of_interest_start"), "time_of_interest_start")
	if err != nil {
		return params, err
	}
	end, err := parseOptionalFloat(field("time_of_interest_end"), "time_of_interest_end")
	if err != nil {
		return params, err
	}
	params.TimeOfInterestStart = start
	params.TimeOfInterestEnd = end

	return params, nil
}
