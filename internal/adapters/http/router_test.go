package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonecast/synchub/internal/adapters/peer"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/app/hub"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/config"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
	"github.com/zonecast/synchub/internal/protocol"
	"github.com/zonecast/synchub/internal/storage"
)

type mockConn struct {
	mu     sync.Mutex
	frames []string
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, string(f))
	return nil
}

func (m *mockConn) Close() {}

func (m *mockConn) types() []protocol.OutboundType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []protocol.OutboundType
	for _, f := range m.frames {
		var e struct {
			Type protocol.OutboundType `json:"type"`
		}
		if json.Unmarshal([]byte(f), &e) == nil {
			out = append(out, e.Type)
		}
	}
	return out
}

type testRouter struct {
	engine *gin.Engine
	handle hub.Handle
	db     *storage.DB
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)

	live := app.NewLivenessTable()
	reg := app.NewRegistry(live, nil)
	actions := app.NewPlayerActionTable()
	o := &orch.Orchestrator{
		Store:    db,
		Sender:   reg,
		Liveness: live,
		Actions:  actions,
		Policy:   app.LenientPolicy{},
	}
	server, handle := hub.NewServer(reg, o, actions, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Run(context.Background())
	}()
	t.Cleanup(func() {
		handle.Shutdown()
		<-done
		server.Wait()
		_ = db.Close()
	})

	cfg := &config.Config{Mode: config.ModeRelease, Secret: "router-test-secret"}
	engine := SetupRouter(context.Background(), cfg, Deps{Handle: handle, Orch: o})
	return &testRouter{engine: engine, handle: handle, db: db}
}

func (tr *testRouter) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthzAndRooms(t *testing.T) {
	tr := newTestRouter(t)
	_, err := tr.handle.Connect(context.Background(), &mockConn{})
	require.NoError(t, err)

	w := tr.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":1,"visitors":1,"rooms":1}`, w.Body.String())

	var cookies []string
	for _, c := range w.Result().Cookies() {
		cookies = append(cookies, c.Name)
	}
	assert.Contains(t, cookies, "ct")

	w = tr.do(http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["main"]`, w.Body.String())
}

func TestRouter_AudioZoneCRUD(t *testing.T) {
	tr := newTestRouter(t)
	conn := &mockConn{}
	_, err := tr.handle.Connect(context.Background(), conn)
	require.NoError(t, err)

	w := tr.do(http.MethodPost, "/api/audio-zones", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tr.do(http.MethodPost, "/api/audio-zones", `{"name":"Patio","players":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var zone domain.AudioZone
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &zone))
	assert.Equal(t, "Patio", zone.Name)
	assert.NotContains(t, conn.types(), protocol.OutAudioZoneWithSessions)

	w = tr.do(http.MethodGet, "/api/audio-zones", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Patio")

	w = tr.do(http.MethodPatch, "/api/audio-zones/9999", `{"name":"Nowhere"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tr.do(http.MethodPatch, "/api/audio-zones/abc", `{"name":"Nowhere"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/api/audio-zones/" + jsonInt(zone.ID)
	w = tr.do(http.MethodPatch, path, `{"name":"Deck"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Deck")
	assert.Contains(t, conn.types(), protocol.OutAudioZoneWithSessions)

	w = tr.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = tr.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UpdateSessionBroadcastsToEveryone(t *testing.T) {
	tr := newTestRouter(t)
	conn := &mockConn{}
	_, err := tr.handle.Connect(context.Background(), conn)
	require.NoError(t, err)

	s, err := tr.db.CreateSession(context.Background(), domain.CreateSession{Name: "Kitchen"})
	require.NoError(t, err)

	w := tr.do(http.MethodPatch, "/api/sessions/"+jsonInt(s.ID), `{"name":"Lounge","playing":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, conn.types(), protocol.OutSessionUpdated)

	got, err := tr.db.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lounge", got.Name)

	w = tr.do(http.MethodPatch, "/api/sessions/424242", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = tr.do(http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lounge")
}

func TestRouter_Events(t *testing.T) {
	tr := newTestRouter(t)
	conn := &mockConn{}
	_, err := tr.handle.Connect(context.Background(), conn)
	require.NoError(t, err)

	w := tr.do(http.MethodPost, "/api/events/scan", `{"progress":0.5}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, conn.types(), protocol.OutScanEvent)

	w = tr.do(http.MethodPost, "/api/events/download", `{"track_id":3}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, conn.types(), protocol.OutDownloadEvent)

	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodPost, "/api/events/reboot", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, tr.do(http.MethodPost, "/api/events/scan", `{nope`).Code)
}

func TestRouter_MetricsWithoutRegistry(t *testing.T) {
	tr := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodGet, "/metrics", "").Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRouter_PeerEndpointRequiresToken(t *testing.T) {
	tr := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodGet, "/api/ws/peer", "").Code)

	cfg := &config.Config{Mode: config.ModeRelease, Secret: "router-test-secret"}
	engine := SetupRouter(context.Background(), cfg, Deps{
		Handle: tr.handle,
		Peer:   &peer.Receiver{Relay: tr.handle, InstanceID: "hub-a", Token: "router-test-secret"},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/ws/peer", nil)
	req.Header.Set(peer.TokenHeader, "guess")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
