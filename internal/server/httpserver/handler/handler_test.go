package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/core/persist"
	"github.com/yndnr/shopmate-go/internal/core/service"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/storage/durable"
)

type fixture struct {
	cache   *cache.Memory
	archive *durable.Memory
	handler *Handler
}

type fixtureOption func(*Deps)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	c := cache.NewMemory(cache.WithSweepInterval(0))
	t.Cleanup(func() { _ = c.Close() })
	a := durable.NewMemory()

	d := Deps{
		Sessions: service.NewSessionService(c, time.Hour),
		Archive:  service.NewArchiveService(a),
		Checks:   []Check{{Name: "cache", Pinger: c}, {Name: "durable", Pinger: a}},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &fixture{cache: c, archive: a, handler: New(d)}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (Response, json.RawMessage) {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return raw.Response, raw.Data
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	env, _ := decodeEnvelope(t, rec)
	if env.Code != "OK" {
		t.Errorf("code = %q, want OK", env.Code)
	}
}

func TestReady(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, body %s", rec.Code, rec.Body)
	}

	f.archive.FailPing = errors.New("mongo down")
	rec := f.do(t, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mongo down") {
		t.Errorf("body %s should name the failing check", rec.Body)
	}

	f.archive.FailPing = nil
	f.cache.Disconnect()
	if rec := f.do(t, http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with cache down = %d, want 503", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions", `{"data":[{"role":"user","content":"hi"}],"metadata":{}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	_, data := decodeEnvelope(t, rec)
	var created CreateSessionResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatal(err)
	}
	if created.SessionID == "" {
		t.Fatal("empty session_id")
	}
	path := "/sessions/" + created.SessionID

	rec = f.do(t, http.MethodGet, path, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Session-Found") != "true" {
		t.Fatalf("get status = %d found = %q", rec.Code, rec.Header().Get("X-Session-Found"))
	}
	_, data = decodeEnvelope(t, rec)
	if !strings.Contains(string(data), `"content":"hi"`) {
		t.Errorf("payload = %s", data)
	}

	rec = f.do(t, http.MethodPut, path, `{"data":[],"metadata":{"step":2}}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	_, data = decodeEnvelope(t, f.do(t, http.MethodGet, path, ""))
	if !strings.Contains(string(data), `"step":2`) {
		t.Errorf("payload after update = %s", data)
	}

	rec = f.do(t, http.MethodGet, path+"/ttl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ttl status = %d", rec.Code)
	}
	_, data = decodeEnvelope(t, rec)
	var ttl SessionTTLResponse
	if err := json.Unmarshal(data, &ttl); err != nil {
		t.Fatal(err)
	}
	if ttl.TTLSeconds <= 0 || ttl.TTLSeconds > 3600 {
		t.Errorf("ttl_seconds = %d", ttl.TTLSeconds)
	}

	for range 2 {
		if rec := f.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
	}

	rec = f.do(t, http.MethodGet, path, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Session-Found") != "false" {
		t.Fatalf("get after delete status = %d found = %q", rec.Code, rec.Header().Get("X-Session-Found"))
	}
	if _, data = decodeEnvelope(t, rec); string(data) != "{}" {
		t.Errorf("payload after delete = %s, want {}", data)
	}

	if ok, _ := f.cache.Exists(context.Background(), domain.ShadowKey(created.SessionID)); !ok {
		t.Error("delete should leave the shadow copy")
	}

	if rec := f.do(t, http.MethodGet, path+"/ttl", ""); rec.Code != http.StatusNotFound {
		t.Errorf("ttl after delete status = %d, want 404", rec.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"create invalid json", http.MethodPost, "/sessions", "{not json", http.StatusBadRequest, "SM-SESS-4001"},
		{"create empty", http.MethodPost, "/sessions", "", http.StatusBadRequest, "SM-SESS-4001"},
		{"update invalid json", http.MethodPut, "/sessions/abc", "[", http.StatusBadRequest, "SM-SESS-4001"},
		{"get shadow namespace", http.MethodGet, "/sessions/shadow:abc", "", http.StatusBadRequest, "SM-ARG-1001"},
		{"update shadow namespace", http.MethodPut, "/sessions/shadow:abc", "{}", http.StatusBadRequest, "SM-ARG-1001"},
		{"delete shadow namespace", http.MethodDelete, "/sessions/shadow:abc", "", http.StatusBadRequest, "SM-ARG-1001"},
		{"ttl shadow namespace", http.MethodGet, "/sessions/shadow:abc/ttl", "", http.StatusBadRequest, "SM-ARG-1001"},
		{"archive shadow namespace", http.MethodGet, "/sessions/shadow:abc/archive", "", http.StatusBadRequest, "SM-ARG-1001"},
		{"id too long", http.MethodGet, "/sessions/" + strings.Repeat("a", domain.MaxSessionIDLength+1), "", http.StatusBadRequest, "SM-ARG-1001"},
		{"too large", http.MethodPost, "/sessions", `"` + strings.Repeat("x", maxBodyBytes) + `"`, http.StatusRequestEntityTooLarge, "SM-SYS-4130"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.status, rec.Body)
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.code {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestDeleteSession_LeavesOtherShadowsAlone(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions", `{"data":[{"role":"user","content":"hi"}]}`)
	_, data := decodeEnvelope(t, rec)
	var created CreateSessionResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatal(err)
	}

	if rec := f.do(t, http.MethodDelete, "/sessions/shadow:"+created.SessionID, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if _, err := f.cache.Get(context.Background(), domain.ShadowKey(created.SessionID)); err != nil {
		t.Errorf("shadow key lost: %v", err)
	}
}

func TestSession_CacheDown(t *testing.T) {
	f := newFixture(t)
	f.cache.Disconnect()

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/sessions", "{}"},
		{http.MethodGet, "/sessions/abc", ""},
		{http.MethodPut, "/sessions/abc", "{}"},
		{http.MethodDelete, "/sessions/abc", ""},
	} {
		rec := f.do(t, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d, want 500", tc.method, tc.path, rec.Code)
		}
		if got := rec.Header().Get("X-Error-Code"); got != "SM-SYS-5001" {
			t.Errorf("%s %s code = %q", tc.method, tc.path, got)
		}
	}
}

func TestListArchive(t *testing.T) {
	f := newFixture(t)

	p, err := domain.ParsePayload([]byte(`{"data":[{"role":"user","content":"where is my order"}],"metadata":{"shop":"x"}}`))
	if err != nil {
		t.Fatal(err)
	}
	r, err := domain.NewDurableRecord("sess-1", p, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.archive.Insert(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodGet, "/sessions/sess-1/archive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	_, data := decodeEnvelope(t, rec)
	var got ArchiveResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || got.Records[0].SessionID != "sess-1" {
		t.Errorf("archive = %+v", got)
	}

	_, data = decodeEnvelope(t, f.do(t, http.MethodGet, "/sessions/none/archive", ""))
	if !strings.Contains(string(data), `"records":[]`) {
		t.Errorf("empty archive = %s, want empty list", data)
	}
}

type stubWorker struct{ status persist.WorkerStatus }

func (s stubWorker) Status() persist.WorkerStatus { return s.status }

type stubSweeper struct {
	result *persist.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) Sweep(context.Context) (*persist.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubSweeper) Last() *persist.SweepResult { return s.result }

func TestWorkerStatus(t *testing.T) {
	f := newFixture(t)
	_, data := decodeEnvelope(t, f.do(t, http.MethodGet, "/admin/v1/worker", ""))
	if !strings.Contains(string(data), `"disabled"`) {
		t.Errorf("worker without component = %s", data)
	}

	f = newFixture(t, func(d *Deps) {
		d.Worker = stubWorker{status: persist.WorkerStatus{State: "LISTENING", EventsProcessed: 7}}
	})
	_, data = decodeEnvelope(t, f.do(t, http.MethodGet, "/admin/v1/worker", ""))
	var st persist.WorkerStatus
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	if st.State != "LISTENING" || st.EventsProcessed != 7 {
		t.Errorf("status = %+v", st)
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodPost, "/admin/v1/sweep", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sweep without sweeper status = %d, want 503", rec.Code)
	}

	sw := &stubSweeper{result: &persist.SweepResult{Scanned: 3, Orphans: 1}}
	f = newFixture(t, func(d *Deps) { d.Sweeper = sw })

	rec := f.do(t, http.MethodPost, "/admin/v1/sweep", "")
	if rec.Code != http.StatusOK || sw.calls != 1 {
		t.Fatalf("status = %d calls = %d", rec.Code, sw.calls)
	}
	_, data := decodeEnvelope(t, rec)
	var res persist.SweepResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 3 || res.Orphans != 1 {
		t.Errorf("result = %+v", res)
	}

	if rec := f.do(t, http.MethodGet, "/admin/v1/sweep", ""); rec.Code != http.StatusOK {
		t.Errorf("last sweep status = %d", rec.Code)
	}

	sw.err = domain.ErrSweepInProgress
	if rec := f.do(t, http.MethodPost, "/admin/v1/sweep", ""); rec.Code != http.StatusConflict {
		t.Errorf("concurrent sweep status = %d, want 409", rec.Code)
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		"SM-SESS-4040": http.StatusNotFound,
		"SM-SESS-4001": http.StatusBadRequest,
		"SM-SYS-4000":  http.StatusBadRequest,
		"SM-ARG-1002":  http.StatusBadRequest,
		"SM-PERS-4220": http.StatusUnprocessableEntity,
		"SM-PERS-4091": http.StatusConflict,
		"SM-PERS-4092": http.StatusConflict,
		"SM-SYS-5030":  http.StatusServiceUnavailable,
		"SM-SYS-5001":  http.StatusInternalServerError,
		"unknown":      http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := errorCodeToHTTPStatus(code); got != want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}
