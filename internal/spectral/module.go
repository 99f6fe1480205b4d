// Package spectral wires the detector log ingestion pipeline: raw log
// upload, asynchronous parsing into columnar spectral artifacts, and the
// aggregation endpoints reading them back.
package spectral

import (
	"context"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgconfig"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgrouter"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkgroutine"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/pkg/pkguid"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/event"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/inbound"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/store"
	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/usecase"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

func New(dep Dependency) (func(context.Context) error, error) {
	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	db, err := store.OpenDB(dep.Config.GetString("spectral.sqlite_path"))
	if err != nil {
		return nil, err
	}
	storage := store.New(db)

	blobs, err := store.NewBlobStore(dep.Config.GetString("spectral.blob_root"))
	if err != nil {
		return nil, err
	}

	if seedPath := dep.Config.GetString("spectral.detector_seed"); seedPath != "" {
		seed, err := store.LoadSeed(seedPath)
		if err != nil {
			return nil, err
		}
		if err := storage.ApplySeed(dep.Context, seed, dep.ID); err != nil {
			return nil, err
		}
	}

	taskID, err := pkguid.NewSnowflake()
	if err != nil {
		return nil, err
	}

	buffer := int(dep.Config.GetInt("spectral.queue.buffer"))
	if buffer <= 0 {
		buffer = 512
	}
	workers := int(dep.Config.GetInt("spectral.queue.workers"))
	if workers <= 0 {
		workers = 4
	}

	dose := usecase.DoseConfig{
		DetectorMassKg:     dep.Config.GetFloat("spectral.dose.detector_mass_kg"),
		IntegrationSeconds: dep.Config.GetFloat("spectral.dose.integration_seconds"),
	}

	bus := event.NewBus(buffer)

	uc := usecase.New(usecase.Dependency{
		Store:   storage,
		Blobs:   blobs,
		Events:  bus,
		Runner:  dep.Goroutine,
		ID:      dep.ID,
		TaskID:  taskID,
		Dose:    dose,
		RootCtx: dep.Context,
	})

	consumer := event.NewProcessingConsumer(bus, uc, event.ConsumerConfig{Workers: workers})
	consumer.Start()

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	closer := func(ctx context.Context) error {
		if err := consumer.Stop(ctx); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return closer, nil
}
