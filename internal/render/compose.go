package render

import (
	"errors"
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
)

// ErrNoGeometry is returned when a view has no province polygons to draw.
var ErrNoGeometry = errors.New("view has no geometry")

// LatLng is a WGS-84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Base is the initial viewport of a map.
type Base struct {
	Center LatLng
	Zoom   int
}

// SpainBase centers the map on Madrid at a zoom that fits the peninsula.
var SpainBase = Base{Center: LatLng{Lat: 40.4165, Lng: -3.7026}, Zoom: 6}

// LayerKind discriminates the layer variants of a Map.
type LayerKind string

const (
	KindChoropleth      LayerKind = "choropleth"
	KindBoundaryTooltip LayerKind = "boundary_tooltip"
)

// Layer is one overlay drawn on the base map.
type Layer interface {
	Kind() LayerKind
}

// ChoroplethLayer shades each province by ValueColumn. Feature properties
// carry the precomputed fill color under "fill".
type ChoroplethLayer struct {
	ValueColumn string
	Legend      string
	Scale       Scale
	FillOpacity float64
	LineOpacity float64
	Features    *geojson.FeatureCollection
}

func (ChoroplethLayer) Kind() LayerKind { return KindChoropleth }

// BoundaryLayer outlines provinces with a transparent fill and carries the
// hover tooltip of each province under the "tooltip" property.
type BoundaryLayer struct {
	Color     string
	Weight    float64
	FillColor string
	Sticky    bool
	Features  *geojson.FeatureCollection
}

func (BoundaryLayer) Kind() LayerKind { return KindBoundaryTooltip }

// Map is a base viewport plus layers, drawn in order.
type Map struct {
	Name   string
	Title  string
	Base   Base
	Layers []Layer
}

// Choropleth returns the map's first choropleth layer, if any.
func (m *Map) Choropleth() (ChoroplethLayer, bool) {
	for _, l := range m.Layers {
		if c, ok := l.(ChoroplethLayer); ok {
			return c, true
		}
	}
	return ChoroplethLayer{}, false
}

// Compose lays out def over a joined view: a choropleth colored by the value
// column and a transparent boundary layer with tooltips. Rows without
// geometry cannot be drawn and are skipped; rows with null values are drawn
// with the no-data fill and blank tooltip values.
func Compose(def mapdef.Definition, view *domain.Table) (*Map, error) {
	if err := view.RequireColumns(def.Columns()...); err != nil {
		return nil, fmt.Errorf("compose %q: %w", def.Name, err)
	}
	if !view.HasGeometry() {
		return nil, fmt.Errorf("compose %q: %w", def.Name, ErrNoGeometry)
	}

	scale, err := NewScale(def.Palette, def.Bins, view.Column(def.ValueColumn))
	if err != nil {
		return nil, fmt.Errorf("compose %q: %w", def.Name, err)
	}

	shaded := geojson.NewFeatureCollection()
	outlines := geojson.NewFeatureCollection()
	for _, row := range view.Rows {
		if row.Geometry == nil {
			continue
		}
		key := row.Get(def.KeyColumn).String()
		value := row.Get(def.ValueColumn)

		f := geojson.NewFeature(row.Geometry)
		f.ID = key
		f.SetProperty(def.KeyColumn, key)
		f.SetProperty(def.ValueColumn, value.Interface())
		f.SetProperty("fill", scale.Color(value))
		shaded.AddFeature(f)

		o := geojson.NewFeature(row.Geometry)
		o.ID = key
		o.SetProperty(def.KeyColumn, key)
		o.SetProperty("tooltip", TooltipHTML(key, def.Tooltip, row))
		outlines.AddFeature(o)
	}

	return &Map{
		Name:  def.Name,
		Title: def.Title,
		Base:  SpainBase,
		Layers: []Layer{
			ChoroplethLayer{
				ValueColumn: def.ValueColumn,
				Legend:      def.Legend,
				Scale:       scale,
				FillOpacity: *def.FillOpacity,
				LineOpacity: *def.LineOpacity,
				Features:    shaded,
			},
			BoundaryLayer{
				Color:     "black",
				Weight:    1,
				FillColor: "#ffffff00",
				Features:  outlines,
			},
		},
	}, nil
}
