package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
)

// DefaultNameField is the province name attribute of the OpenDataSoft
// georef-spain-provincia export.
const DefaultNameField = "prov_name"

// ErrUnsupportedFormat is returned for polygon files that are neither GeoJSON nor shapefiles.
var ErrUnsupportedFormat = errors.New("unsupported polygon file format")

// LoadProvinces reads a polygon file and renames nameField to the province
// join key. The format is chosen by extension: .shp, .geojson or .json.
func LoadProvinces(ctx context.Context, path, nameField string) (*domain.Table, error) {
	if nameField == "" {
		nameField = DefaultNameField
	}

	var (
		t   *domain.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		t, err = LoadShapefile(ctx, path)
	case ".geojson", ".json":
		t, err = LoadGeoJSON(ctx, path)
	default:
		return nil, fmt.Errorf("load provinces %q: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	if err := t.RenameColumn(nameField, domain.ColProvince); err != nil {
		return nil, fmt.Errorf("provinces %q: name field: %w", path, err)
	}
	return t, nil
}

// LoadGeoJSON reads a FeatureCollection. Feature properties become columns,
// in first-seen order; only Polygon and MultiPolygon geometries are kept.
func LoadGeoJSON(ctx context.Context, path string) (*domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson %q: %w", path, err)
	}

	var columns []string
	for _, f := range fc.Features {
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			if !slices.Contains(columns, k) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		columns = append(columns, keys...)
	}

	t := domain.NewTable(tableName(path), columns)
	for i, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		geometry := f.Geometry
		if geometry != nil && !geometry.IsPolygon() && !geometry.IsMultiPolygon() {
			return nil, fmt.Errorf("geojson %q: feature %d: geometry %q is not a polygon", path, i, geometry.Type)
		}
		values := make(map[string]domain.Value, len(columns))
		for _, col := range columns {
			values[col] = domain.ValueOf(f.Properties[col])
		}
		t.Append(values, geometry)
	}
	return t, nil
}

// LoadShapefile reads a polygon shapefile and its .dbf attributes. Coordinates
// are taken as stored; the file is expected in WGS-84 longitude/latitude.
func LoadShapefile(ctx context.Context, path string) (*domain.Table, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	text, err := dbfTextFor(path)
	if err != nil {
		return nil, fmt.Errorf("shapefile %q: %w", path, err)
	}

	fields := reader.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.String()
	}

	t := domain.NewTable(tableName(path), columns)
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, shape := reader.Shape()

		geometry, err := shapeGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("shapefile %q: record %d: %w", path, row, err)
		}

		values := make(map[string]domain.Value, len(fields))
		for i, f := range fields {
			values[columns[i]] = attributeValue(f, text.decode(reader.ReadAttribute(row, i)))
		}
		t.Append(values, geometry)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %q: %w", path, err)
	}
	return t, nil
}

func attributeValue(f shp.Field, raw string) domain.Value {
	raw = strings.TrimRight(raw, "\x00 ")
	switch f.Fieldtype {
	case 'N', 'F':
		return domain.ParseValue(raw)
	default:
		if strings.TrimSpace(raw) == "" {
			return domain.Null()
		}
		return domain.Text(raw)
	}
}

// dbfText decodes attribute text. A nil decoder keeps text as stored.
type dbfText struct {
	decoder  *encoding.Decoder
	declared bool // code page named by a .cpg file
}

// dbfTextFor reads the .cpg file next to path. Without one, text that is not
// valid UTF-8 is read as ISO-8859-1, which older exports use.
func dbfTextFor(path string) (dbfText, error) {
	data, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".cpg")
	if errors.Is(err, fs.ErrNotExist) {
		return dbfText{decoder: charmap.ISO8859_1.NewDecoder()}, nil
	}
	if err != nil {
		return dbfText{}, fmt.Errorf("read code page: %w", err)
	}
	enc, err := codePage(string(data))
	if err != nil {
		return dbfText{}, err
	}
	if enc == nil {
		return dbfText{declared: true}, nil
	}
	return dbfText{decoder: enc.NewDecoder(), declared: true}, nil
}

func (d dbfText) decode(raw string) string {
	if d.decoder == nil || (!d.declared && utf8.ValidString(raw)) {
		return raw
	}
	s, err := d.decoder.String(raw)
	if err != nil {
		return raw
	}
	return s
}

// codePage resolves a .cpg label. ESRI writes bare Windows code page numbers
// ("1252", "ANSI 1252"); anything else is looked up as a WHATWG label.
// A nil encoding means UTF-8.
func codePage(label string) (encoding.Encoding, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	label = strings.TrimPrefix(label, "ANSI ")
	switch label {
	case "UTF-8", "UTF8", "65001":
		return nil, nil
	case "1252", "CP1252":
		return charmap.Windows1252, nil
	case "88591", "8859_1", "ISO88591", "LATIN1":
		return charmap.ISO8859_1, nil
	case "885915", "8859_15", "ISO885915":
		return charmap.ISO8859_15, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("code page %q: %w", label, err)
	}
	return enc, nil
}

func shapeGeometry(shape shp.Shape) (*geojson.Geometry, error) {
	switch s := shape.(type) {
	case *shp.Null, nil:
		return nil, nil
	case *shp.Polygon:
		return polygonGeometry(s.Parts, s.Points), nil
	case *shp.PolygonZ:
		return polygonGeometry(s.Parts, s.Points), nil
	case *shp.PolygonM:
		return polygonGeometry(s.Parts, s.Points), nil
	default:
		return nil, fmt.Errorf("shape %T is not a polygon", shape)
	}
}

// polygonGeometry assembles shapefile parts into polygons. Outer rings are
// clockwise and holes counter-clockwise; each hole joins the first outer ring
// containing it. A hole no outer ring contains is kept as its own polygon.
func polygonGeometry(parts []int32, points []shp.Point) *geojson.Geometry {
	type polygon struct {
		outer []float64
		rings [][][]float64
	}
	var (
		polygons []*polygon
		holes    [][]float64
	)

	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(points)) {
			continue
		}
		ring := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			ring = append(ring, p.X, p.Y)
		}
		// fewer than three distinct points plus the closing one
		if len(ring) < 8 {
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, ring) {
			holes = append(holes, ring)
			continue
		}
		polygons = append(polygons, &polygon{outer: ring, rings: [][][]float64{positions(ring)}})
	}

	for _, hole := range holes {
		var owner *polygon
		for _, p := range polygons {
			if xy.IsPointInRing(geom.XY, geom.Coord{hole[0], hole[1]}, p.outer) {
				owner = p
				break
			}
		}
		if owner == nil {
			polygons = append(polygons, &polygon{outer: hole, rings: [][][]float64{positions(hole)}})
			continue
		}
		owner.rings = append(owner.rings, positions(hole))
	}

	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return geojson.NewPolygonGeometry(polygons[0].rings)
	default:
		multi := make([][][][]float64, len(polygons))
		for i, p := range polygons {
			multi[i] = p.rings
		}
		return geojson.NewMultiPolygonGeometry(multi...)
	}
}

func positions(flat []float64) [][]float64 {
	out := make([][]float64, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, []float64{flat[i], flat[i+1]})
	}
	return out
}

func tableName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
