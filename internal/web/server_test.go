package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/eartrain/internal/trainer"
)

type stubState struct {
	snap trainer.Snapshot
	sum  trainer.Summary
}

func (s *stubState) Snapshot() trainer.Snapshot { return s.snap }
func (s *stubState) Summary() trainer.Summary   { return s.sum }

func testState() *stubState {
	return &stubState{
		snap: trainer.Snapshot{
			Status:        trainer.StatusListening,
			TargetNote:    60,
			TargetName:    "C4",
			RingDirection: trainer.DirectionNeutral,
		},
		sum: trainer.Summary{Targets: 5, Passed: 3, MeanAbsCents: 4.2},
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	assert := assert.New(t)
	srv := NewServer(":0", testState(), nil)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("application/json", resp.Header.Get("Content-Type"))

	var snap trainer.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(trainer.StatusListening, snap.Status)
	assert.Equal(60, snap.TargetNote)
	assert.Equal("C4", snap.TargetName)
}

func TestStatsEndpoint(t *testing.T) {
	assert := assert.New(t)
	srv := NewServer(":0", testState(), nil)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(http.StatusOK, resp.StatusCode)

	var sum trainer.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(5, sum.Targets)
	assert.Equal(3, sum.Passed)
	assert.InDelta(4.2, sum.MeanAbsCents, 0.001)
}

func TestCrossOriginRequestsAllowed(t *testing.T) {
	srv := NewServer(":0", testState(), nil)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/snapshot", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://overlay.local")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWriteEndpointsRejected(t *testing.T) {
	srv := NewServer(":0", testState(), nil)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/snapshot", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownPathNotFound(t *testing.T) {
	srv := NewServer(":0", testState(), nil)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartServesAndShutsDown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testState(), nil)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestStartReportsBindFailure(t *testing.T) {
	first := NewServer("127.0.0.1:0", testState(), nil)
	require.NoError(t, first.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first.Shutdown(ctx)
	}()

	second := NewServer(first.Addr(), testState(), nil)
	assert.Error(t, second.Start())
}
