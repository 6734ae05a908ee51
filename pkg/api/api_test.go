package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/pipeline"
)

const smallRun = `{
  "simulation": {"num_records": 30, "gen_len": 10, "num_parents": 2},
  "traits": {"num_traits": 1, "num_keywords": 2}
}`

func newServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, logger)
	ts := httptest.NewServer(New(runner, logger, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func createRun(t *testing.T, ts *httptest.Server, body string) (*http.Response, Run) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var run Run
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	}
	return resp, run
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	defer resp.Body.Close()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	ts := newServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Build.Version)
	assert.NotEmpty(t, body.Build.GoVersion)
}

func TestCreateAndGetRun(t *testing.T) {
	ts := newServer(t)

	resp, run := createRun(t, ts, smallRun)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/v1/runs/"+run.ID, resp.Header.Get("Location"))
	assert.Equal(t, 30, run.Summary.Stats.Nodes)
	assert.Equal(t, 3, run.Summary.Stats.Generations)
	assert.NotEmpty(t, run.Summary.Key)

	get, err := http.Get(ts.URL + "/v1/runs/" + run.ID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var got Run
	require.NoError(t, json.NewDecoder(get.Body).Decode(&got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Summary.Metrics.Transmissions, got.Summary.Metrics.Transmissions)
}

func TestGetDiagram(t *testing.T) {
	ts := newServer(t)
	_, run := createRun(t, ts, smallRun)

	resp, err := http.Get(ts.URL + "/v1/runs/" + run.ID + "/dot?founders=0,1&traits=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "graphviz")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "digraph genealogy {"))

	resp, err = http.Get(ts.URL + "/v1/runs/" + run.ID + "/dot?view=inheritance")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.HasPrefix(string(body), "digraph inheritance {"))
}

func TestDiagramBadQuery(t *testing.T) {
	ts := newServer(t)
	_, run := createRun(t, ts, smallRun)

	tests := []string{"founders=a", "traits=-1", "view=sankey", "format=gif"}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/v1/runs/" + run.ID + "/dot?" + q)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, errors.ErrCodeInvalidConfiguration, decodeError(t, resp).Code)
		})
	}
}

func TestCreateRunErrors(t *testing.T) {
	ts := newServer(t, WithMaxRecords(100))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"simulation":`},
		{"unknown field", `{"bogus": 1}`},
		{"invalid config", `{"simulation": {"num_records": 5, "gen_len": 10}}`},
		{"over limit", `{"simulation": {"num_records": 1000}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := createRun(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRunNotFound(t *testing.T) {
	ts := newServer(t)
	for _, path := range []string{"/v1/runs/nope", "/v1/runs/8c1f5d1e-8f50-4f55-9a59-4d1c1f9f1e2a/dot"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, errors.ErrCodeNotFound, decodeError(t, resp).Code)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1,2")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(errors.ErrCodeCyclicReference))
	assert.Equal(t, http.StatusNotFound, statusOf(errors.ErrCodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.ErrCodeSamplingFailure))
}
