package http_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-trigger-map/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/climate-trigger-map/internal/adapter/http"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/observability"
	"github.com/couchcryptid/climate-trigger-map/internal/pipeline"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

// The server is started before the datasets load, so it must answer health
// probes and report not ready until Prepare succeeds.
func TestReadinessFollowsPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defs, err := mapdef.Default()
	require.NoError(t, err)
	renderer, err := render.NewRenderer()
	require.NoError(t, err)

	source := dataset.NewFileSource(dataset.Paths{
		Triggers:  "../dataset/testdata/triggers.csv",
		Results:   "../dataset/testdata/results.csv",
		Provinces: "../dataset/testdata/provinces.geojson",
	}, logger)
	p := pipeline.New(source, renderer, defs, nil, logger, observability.NewMetricsForTesting())
	srv := httpadapter.NewServer(":0", p, logger)

	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/triggers").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/mortality").Code)

	require.NoError(t, p.Prepare(context.Background()))

	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/triggers").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/mortality").Code)
}
