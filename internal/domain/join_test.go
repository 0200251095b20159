package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provincesTable(names ...string) *Table {
	t := NewTable("provinces", []string{ColProvince, "cod_prov"})
	for i, n := range names {
		g := geojson.NewPolygonGeometry([][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
		t.Append(map[string]Value{ColProvince: Text(n), "cod_prov": Int(int64(i + 1))}, g)
	}
	return t
}

func triggerTable() *Table {
	t := NewTable("triggers", []string{ColProvince, ColTriggerMaxTemp, ColTriggerMaxHumidity, ColMortalityCount})
	t.Append(map[string]Value{
		ColProvince:           Text("MADRID"),
		ColTriggerMaxTemp:     Float(40.5),
		ColTriggerMaxHumidity: Float(60.2),
		ColMortalityCount:     Int(99),
	}, nil)
	return t
}

func resultsTable() *Table {
	t := NewTable("results", []string{ColProvince, ColYear, ColMonth, ColMortalityCount})
	add := func(p string, y, m, count int64) {
		t.Append(map[string]Value{ColProvince: Text(p), ColYear: Int(y), ColMonth: Int(m), ColMortalityCount: Int(count)}, nil)
	}
	add("MADRID", 2022, 7, 11)
	add("MADRID", 2022, 8, 17)
	add("SEVILLA", 2022, 7, 23)
	return t
}

// projection flattens rows to province -> column values for comparison.
func projection(t *Table, cols ...string) []map[string]string {
	out := make([]map[string]string, 0, t.Len())
	for _, r := range t.Rows {
		rec := make(map[string]string, len(cols))
		for _, c := range cols {
			rec[c] = r.Get(c).String()
		}
		out = append(out, rec)
	}
	return out
}

func TestLeftJoin_KeepsUnmatchedPrimaryRows(t *testing.T) {
	joined, err := LeftJoin(provincesTable("MADRID", "BARCELONA"), triggerTable(), ColProvince)
	require.NoError(t, err)
	require.Equal(t, 2, joined.Len())

	madrid, barcelona := joined.Rows[0], joined.Rows[1]
	assert.Equal(t, Float(40.5), madrid.Get(ColTriggerMaxTemp))
	assert.Equal(t, Float(60.2), madrid.Get(ColTriggerMaxHumidity))
	assert.NotNil(t, madrid.Geometry)

	assert.Equal(t, Text("BARCELONA"), barcelona.Get(ColProvince))
	assert.True(t, barcelona.Get(ColTriggerMaxTemp).IsNull())
	assert.True(t, barcelona.Get(ColTriggerMaxHumidity).IsNull())
	assert.NotNil(t, barcelona.Geometry, "geometry survives a missing match")
}

func TestLeftJoin_SchemaOrderAndCollisions(t *testing.T) {
	results := resultsTable()
	triggers := triggerTable()

	joined, err := LeftJoin(results, triggers, ColProvince)
	require.NoError(t, err)

	want := []string{ColProvince, ColYear, ColMonth, ColMortalityCount, ColTriggerMaxTemp, ColTriggerMaxHumidity}
	if diff := cmp.Diff(want, joined.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{ColMortalityCount}, CollidingColumns(results, triggers, ColProvince))
	assert.Equal(t, Int(11), joined.Rows[0].Get(ColMortalityCount), "first table's column wins")
}

func TestLeftJoin_RowMultiplying(t *testing.T) {
	joined, err := LeftJoin(provincesTable("MADRID", "BARCELONA"), resultsTable(), ColProvince)
	require.NoError(t, err)

	got := projection(joined, ColProvince, ColMonth)
	want := []map[string]string{
		{ColProvince: "MADRID", ColMonth: "7"},
		{ColProvince: "MADRID", ColMonth: "8"},
		{ColProvince: "BARCELONA", ColMonth: ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerJoin_DropsProvincesMissingEitherSide(t *testing.T) {
	joined, err := InnerJoin(resultsTable(), triggerTable(), ColProvince)
	require.NoError(t, err)

	got := projection(joined, ColProvince, ColMonth, ColTriggerMaxTemp)
	want := []map[string]string{
		{ColProvince: "MADRID", ColMonth: "7", ColTriggerMaxTemp: "40.5"},
		{ColProvince: "MADRID", ColMonth: "8", ColTriggerMaxTemp: "40.5"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLeftJoinThenFilterMatchesInnerJoin(t *testing.T) {
	primaries := []*Table{
		provincesTable("MADRID", "BARCELONA", "SEVILLA"),
		resultsTable(),
		provincesTable(),
	}
	secondaries := []*Table{triggerTable(), resultsTable(), triggerTable()}

	for i := range primaries {
		a, b := primaries[i], secondaries[i]
		left, err := LeftJoin(a, b, ColProvince)
		require.NoError(t, err)
		inner, err := InnerJoin(a, b, ColProvince)
		require.NoError(t, err)

		missing := Unmatched(a, b, ColProvince)
		filtered := Filter(left, func(r Row) bool {
			for _, k := range missing {
				if r.Get(ColProvince).String() == k {
					return false
				}
			}
			return true
		})

		assert.Equal(t, projection(inner, inner.Columns...), projection(filtered, inner.Columns...), "case %d", i)
	}
}

func TestJoin_CaseAndWhitespaceInsensitiveAfterNormalize(t *testing.T) {
	provinces := provincesTable("Madrid ")
	triggers := triggerTable()
	require.NoError(t, NormalizeColumn(provinces, ColProvince))
	require.NoError(t, NormalizeColumn(triggers, ColProvince))

	joined, err := LeftJoin(provinces, triggers, ColProvince)
	require.NoError(t, err)
	assert.Equal(t, Float(40.5), joined.Rows[0].Get(ColTriggerMaxTemp))
}

func TestJoin_MissingKey(t *testing.T) {
	_, err := LeftJoin(NewTable("provinces", []string{"prov_name"}), triggerTable(), ColProvince)
	require.ErrorIs(t, err, ErrColumnNotFound)

	_, err = InnerJoin(triggerTable(), NewTable("results", nil), ColProvince)
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestUnmatched(t *testing.T) {
	got := Unmatched(provincesTable("MADRID", "BARCELONA", "BARCELONA", "GIRONA"), triggerTable(), ColProvince)
	assert.Equal(t, []string{"BARCELONA", "GIRONA"}, got)
}

func TestFilterPeriod(t *testing.T) {
	combined, err := InnerJoin(resultsTable(), triggerTable(), ColProvince)
	require.NoError(t, err)

	july := FilterPeriod(combined, 2022, 7)
	require.Equal(t, 1, july.Len())
	assert.Equal(t, Text("MADRID"), july.Rows[0].Get(ColProvince))
	assert.Equal(t, Int(11), july.Rows[0].Get(ColMortalityCount))

	assert.Equal(t, 0, FilterPeriod(combined, 2021, 7).Len())
}
