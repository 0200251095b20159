package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/observability"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

var (
	// ErrNotReady is returned when maps are requested before Prepare succeeded.
	ErrNotReady = errors.New("datasets not loaded")
	// ErrNoResults is returned for the mortality map when no adjusted results were loaded.
	ErrNoResults = errors.New("adjusted results not loaded")
)

// Extractor reads the input datasets.
type Extractor interface {
	Extract(ctx context.Context) (*domain.Datasets, error)
}

// Renderer turns a composed map into a page.
type Renderer interface {
	Render(m *render.Map, sel *render.Selector) (*render.Artifact, error)
}

// Publisher forwards the data behind a rendered map.
type Publisher interface {
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// state is everything Prepare derives from the inputs. It is built once and
// never modified.
type state struct {
	data       *domain.Datasets
	combined   *domain.Table
	controller *Controller
}

// Pipeline loads the inputs once and renders the trigger and mortality maps on demand.
type Pipeline struct {
	extractor Extractor
	renderer  Renderer
	defs      mapdef.Set
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	state atomic.Pointer[state]
	ready atomic.Bool
}

// New creates a Pipeline. publisher may be nil to disable snapshot publishing.
func New(e Extractor, r Renderer, defs mapdef.Set, pub Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		renderer:  r,
		defs:      defs,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the datasets are loaded and the default
// maps rendered.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("datasets have not been loaded yet")
	}
	return nil
}

// Prepare loads and normalizes the datasets, joins adjusted results with the
// trigger values and renders each map once to surface data problems at
// startup. Any failure aborts.
func (p *Pipeline) Prepare(ctx context.Context) error {
	ds, err := p.extractor.Extract(ctx)
	if err != nil {
		return fmt.Errorf("extract datasets: %w", err)
	}
	if err := ds.Normalize(); err != nil {
		return fmt.Errorf("normalize province keys: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validate datasets: %w", err)
	}

	p.metrics.RowsLoaded.WithLabelValues("provinces").Set(float64(ds.Provinces.Len()))
	p.metrics.RowsLoaded.WithLabelValues("trigger_values").Set(float64(ds.Triggers.Len()))

	s := &state{data: ds}
	if ds.Results != nil {
		p.metrics.RowsLoaded.WithLabelValues("adjusted_results").Set(float64(ds.Results.Len()))

		if dropped := domain.CollidingColumns(ds.Results, ds.Triggers, domain.ColProvince); len(dropped) > 0 {
			p.logger.Info("trigger columns shadowed by adjusted results", "columns", dropped)
		}
		s.combined, err = domain.InnerJoin(ds.Results, ds.Triggers, domain.ColProvince)
		if err != nil {
			return fmt.Errorf("combine results with trigger values: %w", err)
		}

		def, err := p.defs.Get(mapdef.Mortality)
		if err != nil {
			return err
		}
		s.controller, err = NewController(s.combined, ds.Provinces, def, p.renderer)
		if err != nil {
			return fmt.Errorf("build period controller: %w", err)
		}
	}
	p.state.Store(s)

	if _, err := p.TriggerMap(ctx); err != nil {
		return fmt.Errorf("render trigger map: %w", err)
	}
	if s.controller != nil {
		periods := s.controller.Periods()
		p.logger.Info("periods available",
			"years", periods.Years, "months", periods.Months,
			"year", periods.Default.Year, "month", periods.Default.Month)
		if _, err := p.MortalityMap(ctx, periods.Default); err != nil {
			return fmt.Errorf("render mortality map: %w", err)
		}
	}

	p.ready.Store(true)
	p.metrics.DatasetsReady.Set(1)
	return nil
}

func (p *Pipeline) loaded() (*state, error) {
	s := p.state.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// TriggerMap renders every province colored by its maximum temperature trigger.
func (p *Pipeline) TriggerMap(ctx context.Context) (*render.Artifact, error) {
	s, err := p.loaded()
	if err != nil {
		return nil, err
	}
	def, err := p.defs.Get(mapdef.Triggers)
	if err != nil {
		return nil, err
	}

	return p.observe(ctx, def.Name, Selection{}, func() (*render.Artifact, *domain.Table, []string, error) {
		view, err := domain.LeftJoin(s.data.Provinces, s.data.Triggers, domain.ColProvince)
		if err != nil {
			return nil, nil, nil, err
		}
		m, err := render.Compose(def, view)
		if err != nil {
			return nil, nil, nil, err
		}
		art, err := p.renderer.Render(m, nil)
		unmatched := domain.Unmatched(s.data.Provinces, s.data.Triggers, domain.ColProvince)
		return art, view, unmatched, err
	})
}

// MortalityMap renders attributable mortality for one period.
func (p *Pipeline) MortalityMap(ctx context.Context, sel Selection) (*render.Artifact, error) {
	ctrl, err := p.Controller()
	if err != nil {
		return nil, err
	}
	if err := ctrl.Validate(sel); err != nil {
		return nil, err
	}

	return p.observe(ctx, mapdef.Mortality, sel, func() (*render.Artifact, *domain.Table, []string, error) {
		view, err := ctrl.View(sel)
		if err != nil {
			return nil, nil, nil, err
		}
		art, err := ctrl.renderView(ctx, view, sel)
		return art, view, ctrl.Unmatched(sel), err
	})
}

// Controller returns the period controller of the mortality map.
func (p *Pipeline) Controller() (*Controller, error) {
	s, err := p.loaded()
	if err != nil {
		return nil, err
	}
	if s.controller == nil {
		return nil, ErrNoResults
	}
	return s.controller, nil
}

// Periods returns the selectable periods of the mortality map.
func (p *Pipeline) Periods() (Periods, error) {
	ctrl, err := p.Controller()
	if err != nil {
		return Periods{}, err
	}
	return ctrl.Periods(), nil
}

// observe runs one render, records its metrics and logs, and publishes the
// snapshot. Publish failures are logged; the map is still returned.
func (p *Pipeline) observe(ctx context.Context, name string, sel Selection, fn func() (*render.Artifact, *domain.Table, []string, error)) (*render.Artifact, error) {
	start := time.Now()
	art, view, unmatched, err := fn()
	if err != nil {
		p.metrics.RenderErrors.WithLabelValues(name).Inc()
		p.logger.Error("render failed", "map", name, "year", sel.Year, "month", sel.Month, "error", err)
		return nil, err
	}

	p.metrics.RendersTotal.WithLabelValues(name).Inc()
	p.metrics.RenderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	p.metrics.UnmatchedProvinces.WithLabelValues(name).Set(float64(len(unmatched)))
	if len(unmatched) > 0 {
		p.logger.Debug("provinces without data", "map", name, "year", sel.Year, "month", sel.Month, "provinces", unmatched)
	}
	p.logger.Debug("map rendered", "map", name, "artifact_id", art.ID, "year", sel.Year, "month", sel.Month, "rows", view.Len())

	p.publish(ctx, domain.NewSnapshot(art.ID, name, sel.Year, sel.Month, art.GeneratedAt, view))
	return art, nil
}

func (p *Pipeline) publish(ctx context.Context, snap *domain.Snapshot) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, snap); err != nil {
		p.metrics.SnapshotErrors.Inc()
		p.logger.Warn("publish snapshot failed", "map", snap.Map, "artifact_id", snap.ArtifactID, "error", err)
		return
	}
	p.metrics.SnapshotsPublished.Inc()
}
