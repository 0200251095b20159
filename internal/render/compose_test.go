package render

import (
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
)

func square(x, y float64) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}})
}

func triggerDef(t *testing.T) mapdef.Definition {
	t.Helper()
	set, err := mapdef.Default()
	require.NoError(t, err)
	def, err := set.Get(mapdef.Triggers)
	require.NoError(t, err)
	return def
}

func triggerView() *domain.Table {
	view := domain.NewTable("provinces+triggers", []string{domain.ColProvince, domain.ColTriggerMaxTemp, domain.ColTriggerMaxHumidity})
	view.Append(map[string]domain.Value{
		domain.ColProvince:           domain.Text("MADRID"),
		domain.ColTriggerMaxTemp:     domain.Float(40.5),
		domain.ColTriggerMaxHumidity: domain.Float(60.2),
	}, square(-4, 40))
	view.Append(map[string]domain.Value{
		domain.ColProvince:           domain.Text("BARCELONA"),
		domain.ColTriggerMaxTemp:     domain.Null(),
		domain.ColTriggerMaxHumidity: domain.Null(),
	}, square(2, 41))
	view.Append(map[string]domain.Value{
		domain.ColProvince:       domain.Text("NOWHERE"),
		domain.ColTriggerMaxTemp: domain.Float(30),
	}, nil)
	return view
}

func TestCompose_Layers(t *testing.T) {
	m, err := Compose(triggerDef(t), triggerView())
	require.NoError(t, err)

	assert.Equal(t, SpainBase, m.Base)
	assert.InDelta(t, 40.4165, m.Base.Center.Lat, 1e-9)
	assert.InDelta(t, -3.7026, m.Base.Center.Lng, 1e-9)
	assert.Equal(t, 6, m.Base.Zoom)
	require.Len(t, m.Layers, 2)
	assert.Equal(t, KindChoropleth, m.Layers[0].Kind())
	assert.Equal(t, KindBoundaryTooltip, m.Layers[1].Kind())

	choro, ok := m.Choropleth()
	require.True(t, ok)
	assert.Equal(t, domain.ColTriggerMaxTemp, choro.ValueColumn)
	assert.InDelta(t, 0.7, choro.FillOpacity, 1e-9)
	assert.InDelta(t, 0.2, choro.LineOpacity, 1e-9)
	require.Len(t, choro.Features.Features, 2, "rows without geometry are not drawn")

	madrid := choro.Features.Features[0]
	assert.Equal(t, "MADRID", madrid.ID)
	assert.Equal(t, "MADRID", madrid.Properties[domain.ColProvince])
	assert.Equal(t, 40.5, madrid.Properties[domain.ColTriggerMaxTemp])
	assert.NotEqual(t, NaNFillColor, madrid.Properties["fill"])

	barcelona := choro.Features.Features[1]
	assert.Nil(t, barcelona.Properties[domain.ColTriggerMaxTemp])
	assert.Equal(t, NaNFillColor, barcelona.Properties["fill"])

	boundary, ok := m.Layers[1].(BoundaryLayer)
	require.True(t, ok)
	assert.Equal(t, "black", boundary.Color)
	assert.InDelta(t, 1.0, boundary.Weight, 1e-9)
	assert.Equal(t, "#ffffff00", boundary.FillColor)
	require.Len(t, boundary.Features.Features, 2)
	assert.Equal(t,
		`<div style="font-size: 14px;"><b>MADRID</b><br>Temp. Máx. Gatillo: 40.50°C<br>Humedad Máx. Gatillo: 60.20%</div>`,
		boundary.Features.Features[0].Properties["tooltip"])
	assert.Equal(t,
		`<div style="font-size: 14px;"><b>BARCELONA</b><br>Temp. Máx. Gatillo: <br>Humedad Máx. Gatillo: </div>`,
		boundary.Features.Features[1].Properties["tooltip"])
}

func TestCompose_ZeroOpacity(t *testing.T) {
	def := triggerDef(t)
	zero := 0.0
	def.FillOpacity = &zero

	m, err := Compose(def, triggerView())
	require.NoError(t, err)
	choro, ok := m.Choropleth()
	require.True(t, ok)
	assert.Zero(t, choro.FillOpacity)
	assert.InDelta(t, 0.2, choro.LineOpacity, 1e-9)
}

func TestCompose_MissingColumn(t *testing.T) {
	view := domain.NewTable("provinces", []string{domain.ColProvince})
	view.Append(map[string]domain.Value{domain.ColProvince: domain.Text("MADRID")}, square(0, 0))

	_, err := Compose(triggerDef(t), view)
	require.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestCompose_NoGeometry(t *testing.T) {
	view := triggerView()
	for i := range view.Rows {
		view.Rows[i].Geometry = nil
	}
	_, err := Compose(triggerDef(t), view)
	require.ErrorIs(t, err, ErrNoGeometry)
}
