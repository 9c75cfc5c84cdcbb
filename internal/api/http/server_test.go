package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/api/dto"
	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/observability"
	"github.com/campusdesk/officehours/internal/realtime"
	"github.com/campusdesk/officehours/internal/repository"
	"github.com/campusdesk/officehours/internal/seed"
	"github.com/campusdesk/officehours/internal/service"
	"github.com/campusdesk/officehours/internal/wire"
)

type testServer struct {
	app  *fiber.App
	repo repository.StatusRepository
	hub  *realtime.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryStatusRepository()
	_, err := seed.Apply(context.Background(), repo, seed.Defaults(), logger)
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	hub := realtime.NewHub(repo, realtime.Config{QueueSize: 16, WriteTimeout: time.Second}, logger)
	hub.Register(dispatcher)
	t.Cleanup(hub.Close)

	statuses := service.NewStatusService(service.StatusDependencies{
		Records:    repo,
		Dispatcher: dispatcher,
		BaseURL:    "http://localhost:5000",
		Logger:     logger,
	})
	app := NewServer(ServerConfig{
		AppName:        "officehours-test",
		Version:        "test",
		RequestTimeout: 5 * time.Second,
		Statuses:       statuses,
		Hub:            hub,
		Metrics:        observability.NewMetrics(),
		Logger:         logger,
	})
	return &testServer{app: app, repo: repo, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*nethttp.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := nethttp.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (s *testServer) firstID(t *testing.T) string {
	t.Helper()
	list, err := s.repo.ListActive(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return list[0].ID
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, raw []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body
}

func TestListFaculty(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.do(t, nethttp.MethodGet, "/api/faculty", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var list []wire.Faculty
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 3)
}

func TestGetFaculty(t *testing.T) {
	s := newTestServer(t)
	id := s.firstID(t)

	resp, raw := s.do(t, nethttp.MethodGet, "/api/faculty/"+id, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var rec wire.Faculty
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, id, rec.ID)

	resp, raw = s.do(t, nethttp.MethodGet, "/api/faculty/does-not-exist", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Error.Code)
}

func TestCreateFaculty(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.do(t, nethttp.MethodPost, "/api/faculty", map[string]any{
		"name":       "A",
		"email":      "a@x.edu",
		"department": "D",
		"office":     "L",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, string(raw))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "away", rec["status"])
	assert.Nil(t, rec["customMessage"])
	assert.Equal(t, true, rec["isActive"])
	assert.NotEmpty(t, rec["id"])
	assert.Equal(t, 4, s.repo.Count(context.Background()))
}

func TestCreateFacultyValidation(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.do(t, nethttp.MethodPost, "/api/faculty", map[string]any{
		"name":   "A",
		"email":  "not-an-email",
		"status": "asleep",
	})
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	body := decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "email")
	assert.Contains(t, body.Error.Details, "department")
	assert.Contains(t, body.Error.Details, "office")
	assert.Contains(t, body.Error.Details, "status")
	assert.Equal(t, 3, s.repo.Count(context.Background()))
}

func TestCreateFacultyMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	req, err := nethttp.NewRequest(nethttp.MethodPost, "/api/faculty", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestCreateFacultyDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.do(t, nethttp.MethodPost, "/api/faculty", map[string]any{
		"name":       "Impostor",
		"email":      "s.johnson@university.edu",
		"department": "D",
		"office":     "L",
	})
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decodeError(t, raw).Error.Code)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.firstID(t)

	resp, raw := s.do(t, nethttp.MethodPatch, "/api/faculty/"+id+"/status", map[string]any{
		"status":        "busy",
		"customMessage": "Grading",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(raw))
	var rec wire.Faculty
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, domain.StatusBusy, rec.Status)
	require.NotNil(t, rec.CustomMessage)
	assert.Equal(t, "Grading", *rec.CustomMessage)

	// omitting the note clears it
	resp, raw = s.do(t, nethttp.MethodPatch, "/api/faculty/"+id+"/status", map[string]any{"status": "away"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Nil(t, rec.CustomMessage)
}

func TestUpdateStatusErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.firstID(t)

	resp, raw := s.do(t, nethttp.MethodPatch, "/api/faculty/"+id+"/status", map[string]any{"status": "sleeping"})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, raw).Error.Details, "status")

	resp, raw = s.do(t, nethttp.MethodPatch, "/api/faculty/"+id+"/status", map[string]any{})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, raw).Error.Details, "status")

	resp, _ = s.do(t, nethttp.MethodPatch, "/api/faculty/nonexistent/status", map[string]any{"status": "busy"})
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 3, s.repo.Count(context.Background()))
}

func TestDeleteFaculty(t *testing.T) {
	s := newTestServer(t)
	id := s.firstID(t)

	resp, _ := s.do(t, nethttp.MethodDelete, "/api/faculty/"+id, nil)
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, nethttp.MethodDelete, "/api/faculty/"+id, nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestQRData(t *testing.T) {
	s := newTestServer(t)
	id := s.firstID(t)

	resp, raw := s.do(t, nethttp.MethodGet, "/api/faculty/"+id+"/qr-data", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var body dto.QRDataResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "http://localhost:5000/faculty/"+id, body.QRData)
	assert.Equal(t, id, body.Faculty.ID)

	resp, _ = s.do(t, nethttp.MethodGet, "/api/faculty/nope/qr-data", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, nethttp.MethodGet, "/health/live", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, raw := s.do(t, nethttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"records":3`)

	resp, raw = s.do(t, nethttp.MethodGet, "/health/metrics", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "/health/live|GET|200")

	s.hub.Close()
	resp, _ = s.do(t, nethttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRouteAndPlainLiveRequest(t *testing.T) {
	s := newTestServer(t)

	resp, raw := s.do(t, nethttp.MethodGet, "/nowhere", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Error.Code)

	resp, _ = s.do(t, nethttp.MethodGet, "/ws", nil)
	assert.Equal(t, nethttp.StatusUpgradeRequired, resp.StatusCode)
}

// listen serves the app on a loopback port for real websocket clients.
func (s *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() {
		s.hub.Close()
		_ = s.app.Shutdown()
	})
	return ln.Addr().String()
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func dialLive(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestLiveChannelSnapshotAndUpdates(t *testing.T) {
	s := newTestServer(t)
	addr := s.listen(t)

	first := dialLive(t, addr)
	second := dialLive(t, addr)

	for _, conn := range []*websocket.Conn{first, second} {
		f := readFrame(t, conn)
		require.Equal(t, "initial_data", f.Type)
		var list []wire.Faculty
		require.NoError(t, json.Unmarshal(f.Data, &list))
		assert.Len(t, list, 3)
	}

	id := s.firstID(t)
	client := &nethttp.Client{Timeout: 3 * time.Second}
	body, _ := json.Marshal(map[string]any{"status": "available", "customMessage": "Here now"})
	req, err := nethttp.NewRequest(nethttp.MethodPatch, "http://"+addr+"/api/faculty/"+id+"/status", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	stored, err := s.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	want := wire.NewFaculty(*stored)

	for _, conn := range []*websocket.Conn{first, second} {
		f := readFrame(t, conn)
		require.Equal(t, "status_updated", f.Type)
		var got wire.Faculty
		require.NoError(t, json.Unmarshal(f.Data, &got))
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, domain.StatusAvailable, got.Status)
		require.NotNil(t, got.CustomMessage)
		assert.Equal(t, "Here now", *got.CustomMessage)
		assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	}

	// a failed write broadcasts nothing; the next frame is the later create
	req, err = nethttp.NewRequest(nethttp.MethodPatch, "http://"+addr+"/api/faculty/nonexistent/status",
		bytes.NewBufferString(`{"status":"busy"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, err = client.Post("http://"+addr+"/api/faculty", "application/json",
		bytes.NewBufferString(`{"name":"N","email":"n@x.edu","department":"D","office":"O"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	f := readFrame(t, first)
	assert.Equal(t, "faculty_added", f.Type)
}

func TestLiveChannelUnsubscribesOnClientClose(t *testing.T) {
	s := newTestServer(t)
	addr := s.listen(t)

	conn := dialLive(t, addr)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return s.hub.Stats().Subscribers == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool { return s.hub.Stats().Subscribers == 0 }, 2*time.Second, 10*time.Millisecond)
}

func sendOverWire(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := nethttp.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := (&nethttp.Client{Timeout: 3 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestStoreSurvivesRequestBufferReuse(t *testing.T) {
	s := newTestServer(t)
	addr := s.listen(t)
	base := "http://" + addr + "/api/faculty/"

	id := s.firstID(t)
	code, _ := sendOverWire(t, nethttp.MethodPatch, base+id+"/status", `{"status":"busy"}`)
	require.Equal(t, nethttp.StatusOK, code)

	// Later requests reuse the buffer the PATCH param pointed into.
	for i := 0; i < 3; i++ {
		code, _ = sendOverWire(t, nethttp.MethodGet, base+"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", "")
		require.Equal(t, nethttp.StatusNotFound, code)
	}

	code, raw := sendOverWire(t, nethttp.MethodGet, base+id, "")
	require.Equal(t, nethttp.StatusOK, code, string(raw))

	code, raw = sendOverWire(t, nethttp.MethodGet, "http://"+addr+"/api/faculty", "")
	require.Equal(t, nethttp.StatusOK, code, string(raw))
	var list []wire.Faculty
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 3)

	code, _ = sendOverWire(t, nethttp.MethodPost, "http://"+addr+"/api/faculty",
		`{"name":"N","email":"n@x.edu","department":"D","office":"O"}`)
	require.Equal(t, nethttp.StatusCreated, code)

	conn := dialLive(t, addr)
	f := readFrame(t, conn)
	require.Equal(t, "initial_data", f.Type)
	require.NoError(t, json.Unmarshal(f.Data, &list))
	assert.Len(t, list, 4)
}

func TestErrorMetricsKeyedByRoute(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 50; i++ {
		resp, _ := s.do(t, nethttp.MethodGet, fmt.Sprintf("/api/faculty/nope-%d", i), nil)
		require.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	}

	resp, raw := s.do(t, nethttp.MethodGet, "/health/metrics", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var body struct {
		HTTP observability.MetricsSnapshot `json:"http"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, int64(50), body.HTTP.Errors["/api/faculty/:id|GET|NOT_FOUND"])
	assert.Len(t, body.HTTP.Errors, 1)
}
