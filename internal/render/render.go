package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Artifact is a rendered, self-contained map page.
type Artifact struct {
	ID          string
	Map         string
	Title       string
	GeneratedAt time.Time
	HTML        []byte
}

// WriteTo writes the page to w.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.HTML)
	return int64(n), err
}

// Selector describes the year/month dropdowns shown above a period map.
type Selector struct {
	Years  []int
	Months []int
	Year   int
	Month  int
}

// Renderer turns composed maps into Leaflet pages.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded page template. Call during startup; an
// error means the binary was built without its templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse map templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type pageData struct {
	ID          string
	Title       string
	Legend      string
	LegendItems []LegendItem
	NaNColor    string
	Center      LatLng
	Zoom        int
	Layers      template.JS
	Selector    *Selector
	GeneratedAt string
}

// layerJSON is the client-side description of a layer.
type layerJSON struct {
	Kind     LayerKind                  `json:"kind"`
	Style    map[string]any             `json:"style"`
	Sticky   bool                       `json:"sticky,omitempty"`
	Features *geojson.FeatureCollection `json:"features"`
}

// Render produces the page for m. sel is nil for maps without a period selector.
func (r *Renderer) Render(m *Map, sel *Selector) (*Artifact, error) {
	if r == nil || r.tmpl == nil {
		return nil, errors.New("map template not loaded: call render.NewRenderer during startup")
	}

	layers := make([]layerJSON, 0, len(m.Layers))
	for _, l := range m.Layers {
		switch l := l.(type) {
		case ChoroplethLayer:
			layers = append(layers, layerJSON{
				Kind: l.Kind(),
				Style: map[string]any{
					"color":       "black",
					"weight":      1,
					"opacity":     l.LineOpacity,
					"fillOpacity": l.FillOpacity,
				},
				Features: l.Features,
			})
		case BoundaryLayer:
			layers = append(layers, layerJSON{
				Kind: l.Kind(),
				Style: map[string]any{
					"color":     l.Color,
					"weight":    l.Weight,
					"fillColor": l.FillColor,
				},
				Sticky:   l.Sticky,
				Features: l.Features,
			})
		default:
			return nil, fmt.Errorf("render %q: unsupported layer kind %q", m.Name, l.Kind())
		}
	}

	// encoding/json escapes <, > and &, so the payload is safe inside <script>.
	payload, err := json.Marshal(layers)
	if err != nil {
		return nil, fmt.Errorf("encode layers: %w", err)
	}

	now := clock.Now().UTC()
	data := pageData{
		ID:          uuid.NewString(),
		Title:       m.Title,
		NaNColor:    NaNFillColor,
		Center:      m.Base.Center,
		Zoom:        m.Base.Zoom,
		Layers:      template.JS(payload), //nolint:gosec // JSON produced by encoding/json
		Selector:    sel,
		GeneratedAt: now.Format(time.RFC3339),
	}
	if c, ok := m.Choropleth(); ok {
		data.Legend = c.Legend
		data.LegendItems = c.Scale.Legend()
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "map.html", data); err != nil {
		return nil, fmt.Errorf("render %q: %w", m.Name, err)
	}

	return &Artifact{
		ID:          data.ID,
		Map:         m.Name,
		Title:       m.Title,
		GeneratedAt: now,
		HTML:        buf.Bytes(),
	}, nil
}
