package render

import (
	"testing"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScale_EqualWidthBins(t *testing.T) {
	values := []domain.Value{domain.Float(30), domain.Int(36), domain.Null(), domain.Float(42), domain.Text("n/a")}

	s, err := NewScale("YlOrRd", 6, values)
	require.NoError(t, err)
	require.Len(t, s.Edges, 7)
	assert.InDelta(t, 30.0, s.Edges[0], 1e-9)
	assert.InDelta(t, 32.0, s.Edges[1], 1e-9)
	assert.InDelta(t, 42.0, s.Edges[6], 1e-9)

	assert.Equal(t, "#ffffb2", s.Color(domain.Float(30)), "minimum falls in the first bin")
	assert.Equal(t, "#fd8d3c", s.Color(domain.Int(36)))
	assert.Equal(t, "#bd0026", s.Color(domain.Float(42)), "maximum falls in the last bin")
	assert.Equal(t, NaNFillColor, s.Color(domain.Null()))
	assert.Equal(t, NaNFillColor, s.Color(domain.Text("n/a")))
}

func TestNewScale_SingleValue(t *testing.T) {
	s, err := NewScale("YlOrRd", 6, []domain.Value{domain.Float(40.5)})
	require.NoError(t, err)
	assert.Equal(t, "#fd8d3c", s.Color(domain.Float(40.5)), "a lone value sits mid-scale")
}

func TestNewScale_NoValues(t *testing.T) {
	s, err := NewScale("YlOrRd", 6, []domain.Value{domain.Null()})
	require.NoError(t, err)
	assert.Empty(t, s.Edges)
	assert.Nil(t, s.Legend())
	assert.Equal(t, NaNFillColor, s.Color(domain.Float(1)))
}

func TestNewScale_UnknownPalette(t *testing.T) {
	_, err := NewScale("Viridis", 6, nil)
	require.Error(t, err)

	_, err = NewScale("YlOrRd", 12, nil)
	require.Error(t, err)
}

func TestScale_Legend(t *testing.T) {
	s, err := NewScale("YlOrRd", 3, []domain.Value{domain.Int(0), domain.Int(30)})
	require.NoError(t, err)

	assert.Equal(t, []LegendItem{
		{Color: "#ffeda0", Label: "0.00 – 10.00"},
		{Color: "#feb24c", Label: "10.00 – 20.00"},
		{Color: "#f03b20", Label: "20.00 – 30.00"},
	}, s.Legend())
}
