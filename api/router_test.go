package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helperlink/dispatch/api"
	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/model"
	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/infra/logger"
	"github.com/helperlink/dispatch/infra/store"
	"github.com/helperlink/dispatch/internal/eventbus"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutCategory(model.Category{ID: "cat-1", Slug: "plumbing", Name: "Plumbing"})
	mem.PutRequester(model.Requester{ID: "user-1", Name: "Asha"})
	mem.PutRequest(model.ServiceRequest{
		ID:          "req-1",
		RequesterID: "user-1",
		Category:    model.Category{ID: "cat-1"},
		Title:       "Leaking tap",
		Location:    &model.Coordinate{Lat: 17.3850, Lng: 78.4867},
		Urgency:     model.UrgencyImmediate,
		Status:      model.StatusOpen,
	})
	mem.PutHelper(model.HelperProfile{
		ID: "h1", Name: "Ravi", Approved: true, IsOnline: true, IsAvailableNow: true,
		Location: &model.Coordinate{Lat: 17.3850, Lng: 78.4867}, Categories: []string{"plumbing"},
		Rating: 4.9, CompletedJobs: 80, AvgResponseMinutes: 4, Verifications: 2,
		LastActiveAt: time.Now(),
	})
	mem.PutHelper(model.HelperProfile{
		ID: "h2", Name: "Sita", Approved: true, IsOnline: true,
		Location: &model.Coordinate{Lat: 17.4399, Lng: 78.4983}, Categories: []string{"plumbing"},
		Rating: 4.1, LastActiveAt: time.Now(),
	})

	fanout, err := notify.NewFanout(notify.LogChannel{Log: logger.NopLogger{}}, logger.NopLogger{})
	require.NoError(t, err)
	orch, err := dispatch.NewOrchestrator(mem, fanout, eventbus.New(), nil, logger.NopLogger{}, dispatch.Config{})
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(orch, mem))
	t.Cleanup(srv.Close)
	return srv, mem
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/requests/req-1")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", body["id"])
	assert.Equal(t, "Leaking tap", body["title"])
}

func TestGetRequestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/requests/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRebroadcast(t *testing.T) {
	srv, mem := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/rebroadcast", "")
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["helpersNotified"])
	assert.Len(t, mem.Broadcasts("req-1"), 2)
}

func TestAcceptFlow(t *testing.T) {
	srv, mem := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/rebroadcast", "")
	_ = resp.Body.Close()

	resp = postJSON(t, srv.URL+"/requests/req-1/accept", `{"helper_id":"h1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, srv.URL+"/requests/req-1/accept", `{"helper_id":"h2"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "h1", req.AssignedHelperID)
}

func TestAcceptMissingHelperID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/accept", `{}`)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecline(t *testing.T) {
	srv, mem := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/rebroadcast", "")
	_ = resp.Body.Close()

	resp = postJSON(t, srv.URL+"/requests/req-1/decline", `{"helper_id":"h2"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	for _, row := range mem.Broadcasts("req-1") {
		if row.HelperID == "h2" {
			assert.Equal(t, model.BroadcastDeclined, row.Status)
		}
	}
}

func TestCancelRebroadcasts(t *testing.T) {
	srv, mem := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/rebroadcast", "")
	_ = resp.Body.Close()
	resp = postJSON(t, srv.URL+"/requests/req-1/accept", `{"helper_id":"h1"}`)
	_ = resp.Body.Close()

	resp = postJSON(t, srv.URL+"/requests/req-1/cancel", `{"helper_id":"h1"}`)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	req, err := mem.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Empty(t, req.AssignedHelperID)
	assert.Equal(t, model.BroadcastActive, req.BroadcastStatus)
}

func TestCompleteThenRebroadcastFails(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/requests/req-1/complete", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, srv.URL+"/requests/req-1/rebroadcast", "")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/helpers/match?category_id=cat-1&lat=17.3850&lng=78.4867&urgency=immediate")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	matches, ok := body["matches"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, matches)
	first := matches[0].(map[string]any)
	assert.Equal(t, "h1", first["helper_id"])
}

func TestMatchEndpointMissingLocation(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/helpers/match?category_id=cat-1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
