package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
)

// Paths locates the three input files.
type Paths struct {
	Triggers  string
	Results   string // optional; the mortality map is unavailable without it
	Provinces string
	NameField string
}

// FileSource loads the datasets from local files.
type FileSource struct {
	paths  Paths
	logger *slog.Logger
}

// NewFileSource creates a source reading the given paths.
func NewFileSource(paths Paths, logger *slog.Logger) *FileSource {
	return &FileSource{paths: paths, logger: logger}
}

// Extract loads every dataset in turn and aborts on the first failure. Tables
// are returned as read; normalization is left to the caller.
func (s *FileSource) Extract(ctx context.Context) (*domain.Datasets, error) {
	triggers, err := LoadCSV(ctx, s.paths.Triggers, "trigger_values")
	if err != nil {
		return nil, fmt.Errorf("load trigger values %q: %w", s.paths.Triggers, err)
	}
	s.logger.Info("dataset loaded", "dataset", triggers.Name, "path", s.paths.Triggers, "rows", triggers.Len())

	ds := &domain.Datasets{Triggers: triggers}

	if s.paths.Results != "" {
		results, err := LoadCSV(ctx, s.paths.Results, "adjusted_results")
		if err != nil {
			return nil, fmt.Errorf("load adjusted results %q: %w", s.paths.Results, err)
		}
		s.logger.Info("dataset loaded", "dataset", results.Name, "path", s.paths.Results, "rows", results.Len())
		ds.Results = results
	}

	provinces, err := LoadProvinces(ctx, s.paths.Provinces, s.paths.NameField)
	if err != nil {
		return nil, fmt.Errorf("load provinces %q: %w", s.paths.Provinces, err)
	}
	provinces.Name = "provinces"
	s.logger.Info("dataset loaded", "dataset", provinces.Name, "path", s.paths.Provinces, "rows", provinces.Len())
	ds.Provinces = provinces

	return ds, nil
}
