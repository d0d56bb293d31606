package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hugolin/travellog/backend/internal/domain"
)

// Export is a full collection backup: indented JSON plus the dated download
// filename clients should save it under.
type Export struct {
	Data     []byte
	Filename string
}

// Export serializes every trip as indented JSON. The filename carries the
// current date, e.g. travel_records_backup_2026-08-31.json.
func (s *TripService) Export(ctx context.Context) (Export, error) {
	trips, err := s.List(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("service.TripService.Export: %w", err)
	}
	data, err := json.MarshalIndent(trips, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("service.TripService.Export: %w", err)
	}
	return Export{
		Data:     data,
		Filename: fmt.Sprintf("travel_records_backup_%s.json", time.Now().Format("2006-01-02")),
	}, nil
}

// Import creates trips from an exported JSON array. Parse or validation
// failure rejects the whole file before any store call. Imported records
// always get fresh store-assigned ids; any ids in the file are discarded.
//
// In additive mode (replace=false) the imported trips merge into the
// existing collection. In replace mode the existing collection — including
// each trip's photo documents — is deleted first. Returns the number of
// trips created.
func (s *TripService) Import(ctx context.Context, data []byte, replace bool) (int, error) {
	var incoming []domain.Trip
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, fmt.Errorf("service.TripService.Import: parse: %w: %v", domain.ErrValidation, err)
	}
	for i := range incoming {
		incoming[i].ID = ""
		if err := incoming[i].Validate(); err != nil {
			return 0, fmt.Errorf("service.TripService.Import: record %d: %w", i, err)
		}
	}

	if replace {
		existing, err := s.trips.ListTrips(ctx)
		if err != nil {
			return 0, fmt.Errorf("service.TripService.Import: %w", err)
		}
		for _, trip := range existing {
			if err := s.trips.DeleteTrip(ctx, trip.ID); err != nil {
				return 0, fmt.Errorf("service.TripService.Import: clear %s: %w", trip.ID, err)
			}
			if _, err := s.photos.DeletePhotosByTrip(ctx, trip.ID); err != nil {
				return 0, fmt.Errorf("service.TripService.Import: clear photos of %s: %w", trip.ID, err)
			}
		}
	}

	created := 0
	for i, trip := range incoming {
		if _, err := s.trips.CreateTrip(ctx, trip); err != nil {
			return created, fmt.Errorf("service.TripService.Import: record %d: %w", i, err)
		}
		created++
	}
	s.logger.Info("import finished", "created", created, "replace", replace)
	return created, nil
}

// LoadSample creates the built-in example trip and returns it with its new
// id. Useful for an empty journal and for demos.
func (s *TripService) LoadSample(ctx context.Context) (domain.Trip, error) {
	trip, _, err := s.Create(ctx, domain.SampleTrip(), nil)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.LoadSample: %w", err)
	}
	return trip, nil
}
