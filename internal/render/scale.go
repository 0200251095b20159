package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
)

// NaNFillColor fills provinces with no value for the choropleth column.
const NaNFillColor = "black"

// palettes holds the ColorBrewer sequential schemes by class count.
var palettes = map[string]map[int][]string{
	"YlOrRd": {
		3: {"#ffeda0", "#feb24c", "#f03b20"},
		4: {"#ffffb2", "#fecc5c", "#fd8d3c", "#e31a1c"},
		5: {"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"},
		6: {"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"},
		7: {"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#b10026"},
		8: {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#b10026"},
		9: {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	},
	"OrRd": {
		3: {"#fee8c8", "#fdbb84", "#e34a33"},
		4: {"#fef0d9", "#fdcc8a", "#fc8d59", "#d7301f"},
		5: {"#fef0d9", "#fdcc8a", "#fc8d59", "#e34a33", "#b30000"},
		6: {"#fef0d9", "#fdd49e", "#fdbb84", "#fc8d59", "#e34a33", "#b30000"},
		7: {"#fef0d9", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#990000"},
		8: {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#990000"},
		9: {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
	},
}

// Scale maps values to palette colors using equal-width bins between the
// minimum and maximum observed values.
type Scale struct {
	Edges  []float64 // len(Colors)+1 bin edges, empty when no value was observed
	Colors []string
}

// NewScale builds a scale with bins classes over the non-null numeric values.
func NewScale(palette string, bins int, values []domain.Value) (Scale, error) {
	byCount, ok := palettes[palette]
	if !ok {
		return Scale{}, fmt.Errorf("unknown palette %q", palette)
	}
	colors, ok := byCount[bins]
	if !ok {
		return Scale{}, fmt.Errorf("palette %q has no %d-class scheme", palette, bins)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		f, ok := v.Float()
		if !ok {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	s := Scale{Colors: colors}
	if math.IsInf(lo, 1) {
		return s, nil
	}
	if lo == hi {
		// A single observed value still yields a usable range.
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	s.Edges = make([]float64, bins+1)
	for i := range s.Edges {
		s.Edges[i] = lo + float64(i)*width
	}
	s.Edges[bins] = hi
	return s, nil
}

// Color returns the fill color for v, or NaNFillColor when v is not numeric.
func (s Scale) Color(v domain.Value) string {
	f, ok := v.Float()
	if !ok || len(s.Edges) == 0 {
		return NaNFillColor
	}
	return s.Colors[s.bin(f)]
}

func (s Scale) bin(f float64) int {
	n := len(s.Colors)
	lo, hi := s.Edges[0], s.Edges[n]
	idx := int(math.Floor((f - lo) / (hi - lo) * float64(n)))
	return max(0, min(idx, n-1))
}

// LegendItem is one swatch in the map legend.
type LegendItem struct {
	Color string
	Label string
}

// Legend returns one item per bin labelled with its range.
func (s Scale) Legend() []LegendItem {
	if len(s.Edges) == 0 {
		return nil
	}
	items := make([]LegendItem, len(s.Colors))
	for i, c := range s.Colors {
		items[i] = LegendItem{
			Color: c,
			Label: formatEdge(s.Edges[i]) + " – " + formatEdge(s.Edges[i+1]),
		}
	}
	return items
}

func formatEdge(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
