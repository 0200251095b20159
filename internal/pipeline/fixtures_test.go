package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/observability"
	"github.com/couchcryptid/climate-trigger-map/internal/pipeline"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

// --- mocks ---

type mockExtractor struct {
	ds  *domain.Datasets
	err error
}

func (m *mockExtractor) Extract(_ context.Context) (*domain.Datasets, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ds, nil
}

type mockPublisher struct {
	mu    sync.Mutex
	snaps []*domain.Snapshot
	err   error
}

func (m *mockPublisher) Publish(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *mockPublisher) last() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return nil
	}
	return m.snaps[len(m.snaps)-1]
}

var errBoom = errors.New("boom")

// --- fixtures ---

var resultColumns = []string{
	domain.ColProvince, domain.ColYear, domain.ColMonth,
	domain.ColMortalityPct, domain.ColMortalityCount,
	domain.ColTempMinMax, domain.ColTempMaxMax, domain.ColHumidityMax,
	"dias_consecutivos_tmin_22", "dias_consecutivos_tmin_25", "dias_consecutivos_tmin_28",
	"dias_consecutivos_tmax_35", "dias_consecutivos_tmax_38", "dias_consecutivos_tmax_41",
	"dias_consecutivos_humedad_70", "dias_consecutivos_humedad_80", "dias_consecutivos_humedad_90",
	domain.ColTotalDays,
}

func square(x, y float64) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}})
}

func provincesTable(names ...string) *domain.Table {
	t := domain.NewTable("provinces", []string{domain.ColProvince})
	for i, n := range names {
		t.Append(map[string]domain.Value{domain.ColProvince: domain.Text(n)}, square(float64(i), 40))
	}
	return t
}

// triggersTable carries a mort_atribuible column that collides with the results.
func triggersTable() *domain.Table {
	t := domain.NewTable("trigger_values", []string{
		domain.ColProvince, domain.ColTriggerMaxTemp, domain.ColTriggerMaxHumidity, domain.ColMortalityCount,
	})
	t.Append(map[string]domain.Value{
		domain.ColProvince:           domain.Text("Madrid "),
		domain.ColTriggerMaxTemp:     domain.Float(40.5),
		domain.ColTriggerMaxHumidity: domain.Float(60.2),
		domain.ColMortalityCount:     domain.Int(99),
	}, nil)
	t.Append(map[string]domain.Value{
		domain.ColProvince:           domain.Text("sevilla"),
		domain.ColTriggerMaxTemp:     domain.Float(42.75),
		domain.ColTriggerMaxHumidity: domain.Float(55),
		domain.ColMortalityCount:     domain.Int(99),
	}, nil)
	return t
}

func resultRow(province string, year, month int, pct float64, count int64) map[string]domain.Value {
	values := make(map[string]domain.Value, len(resultColumns))
	for i, c := range resultColumns[5:] {
		values[c] = domain.Int(int64(i))
	}
	values[domain.ColTempMinMax] = domain.Float(22.1)
	values[domain.ColTempMaxMax] = domain.Float(39.8)
	values[domain.ColHumidityMax] = domain.Float(71)
	values[domain.ColProvince] = domain.Text(province)
	values[domain.ColYear] = domain.Int(int64(year))
	values[domain.ColMonth] = domain.Int(int64(month))
	values[domain.ColMortalityPct] = domain.Float(pct)
	values[domain.ColMortalityCount] = domain.Int(count)
	return values
}

func resultsTable(rows ...map[string]domain.Value) *domain.Table {
	t := domain.NewTable("adjusted_results", resultColumns)
	for _, r := range rows {
		t.Append(r, nil)
	}
	return t
}

// defaultResults holds MADRID for 2022-07 and 2022-08 and SEVILLA for
// 2021-12. BARCELONA has geometry but no data.
func defaultDatasets() *domain.Datasets {
	return &domain.Datasets{
		Provinces: provincesTable("MADRID", "BARCELONA", "Sevilla"),
		Triggers:  triggersTable(),
		Results: resultsTable(
			resultRow(" madrid", 2022, 7, 12.345, 5),
			resultRow("MADRID", 2022, 8, 8.5, 3),
			resultRow("SEVILLA", 2021, 12, 4.2, 2),
		),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, ds *domain.Datasets, pub pipeline.Publisher) (*pipeline.Pipeline, *observability.Metrics) {
	t.Helper()
	r, err := render.NewRenderer()
	require.NoError(t, err)
	defs, err := mapdef.Default()
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	return pipeline.New(&mockExtractor{ds: ds}, r, defs, pub, quietLogger(), metrics), metrics
}
