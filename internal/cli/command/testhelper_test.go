package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/shopmate-go/internal/core/persist"
	"github.com/yndnr/shopmate-go/internal/core/service"
	"github.com/yndnr/shopmate-go/internal/server/httpserver"
	"github.com/yndnr/shopmate-go/internal/server/httpserver/handler"
	"github.com/yndnr/shopmate-go/internal/storage/cache"
	"github.com/yndnr/shopmate-go/internal/storage/durable"
)

// runCLI runs the app with a private CLI config path and captured output.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"shopmate-cli", "--cli-config", filepath.Join(t.TempDir(), "cli.yaml")}, args...)
	err = app.Run(full)
	return out.String(), errOut.String(), err
}

// testServer is a real shopmate HTTP surface over in-memory storage.
type testServer struct {
	*httptest.Server
	cache   *cache.Memory
	archive *durable.Memory
}

type serverOption func(*handler.Deps)

func withSweeper(s handler.SweepTrigger) serverOption {
	return func(d *handler.Deps) { d.Sweeper = s }
}

func withWorker(w handler.WorkerInspector) serverOption {
	return func(d *handler.Deps) { d.Worker = w }
}

func withCheck(name string, p handler.Pinger) serverOption {
	return func(d *handler.Deps) { d.Checks = append(d.Checks, handler.Check{Name: name, Pinger: p}) }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	c := cache.NewMemory(cache.WithSweepInterval(0))
	a := durable.NewMemory()

	deps := handler.Deps{
		Sessions: service.NewSessionService(c, time.Hour),
		Archive:  service.NewArchiveService(a),
		Checks:   []handler.Check{{Name: "cache", Pinger: c}, {Name: "durable", Pinger: a}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Deps:   deps,
		Logger: deps.Logger,
	}))
	t.Cleanup(func() {
		srv.Close()
		_ = c.Close()
	})
	return &testServer{Server: srv, cache: c, archive: a}
}

type stubSweeper struct {
	last *persist.SweepResult
	err  error
}

func (s *stubSweeper) Sweep(ctx context.Context) (*persist.SweepResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.last = &persist.SweepResult{
		StartedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Duration:  40 * time.Millisecond,
		Scanned:   5,
		Orphans:   2,
		Suspects:  1,
		Outcomes:  map[persist.Outcome]int{persist.OutcomePersisted: 1},
	}
	return s.last, nil
}

func (s *stubSweeper) Last() *persist.SweepResult { return s.last }

type stubWorker struct{ status persist.WorkerStatus }

func (w stubWorker) Status() persist.WorkerStatus { return w.status }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }
