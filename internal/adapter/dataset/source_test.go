package dataset_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-trigger-map/internal/adapter/dataset"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileSource_Extract(t *testing.T) {
	src := dataset.NewFileSource(dataset.Paths{
		Triggers:  "testdata/triggers.csv",
		Results:   "testdata/results.csv",
		Provinces: "testdata/provinces.geojson",
	}, quietLogger())

	ds, err := src.Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Triggers.Len())
	assert.Equal(t, 3, ds.Results.Len())
	assert.Equal(t, 3, ds.Provinces.Len())
	assert.Equal(t, "provinces", ds.Provinces.Name)
	require.NoError(t, ds.Validate())
}

func TestFileSource_ResultsOptional(t *testing.T) {
	src := dataset.NewFileSource(dataset.Paths{
		Triggers:  "testdata/triggers.csv",
		Provinces: "testdata/provinces.geojson",
	}, quietLogger())

	ds, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ds.Results)
}

func TestFileSource_ErrorNamesPath(t *testing.T) {
	tests := []struct {
		name  string
		paths dataset.Paths
		want  string
	}{
		{
			name:  "trigger values",
			paths: dataset.Paths{Triggers: "testdata/missing.csv", Provinces: "testdata/provinces.geojson"},
			want:  `load trigger values "testdata/missing.csv"`,
		},
		{
			name:  "adjusted results",
			paths: dataset.Paths{Triggers: "testdata/triggers.csv", Results: "testdata/missing.csv", Provinces: "testdata/provinces.geojson"},
			want:  `load adjusted results "testdata/missing.csv"`,
		},
		{
			name:  "provinces",
			paths: dataset.Paths{Triggers: "testdata/triggers.csv", Provinces: "testdata/missing.geojson"},
			want:  `load provinces "testdata/missing.geojson"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.NewFileSource(tt.paths, quietLogger()).Extract(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
