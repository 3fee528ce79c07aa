package command

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/yndnr/shopmate-go/internal/cli/connection"
	"github.com/yndnr/shopmate-go/internal/core/domain"
	"github.com/yndnr/shopmate-go/internal/core/persist"
)

func TestSystemCommand(t *testing.T) {
	cmd := SystemCommand()
	if cmd.Name != "system" || len(cmd.Aliases) == 0 || cmd.Aliases[0] != "sys" {
		t.Errorf("unexpected command: %s %v", cmd.Name, cmd.Aliases)
	}

	subs := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subs[sub.Name] = true
	}
	for _, name := range []string{"health", "ready", "worker", "sweep"} {
		if !subs[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestSystem_Health(t *testing.T) {
	srv := newTestServer(t)
	stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "health")
	if err != nil {
		t.Fatalf("system health: %v", err)
	}
	if !strings.Contains(stdout, "Server is healthy") {
		t.Errorf("output = %q", stdout)
	}
}

func TestSystem_HealthUnreachable(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	_, _, err := runCLI(t, "", "--server", url, "system", "health")
	if err == nil || !strings.Contains(err.Error(), "server unreachable") {
		t.Errorf("error = %v", err)
	}
}

func TestSystem_Ready(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(t)
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "ready")
		if err != nil {
			t.Fatalf("system ready: %v", err)
		}
		if !strings.Contains(stdout, "cache") || !strings.Contains(stdout, "durable") {
			t.Errorf("output = %q", stdout)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		srv := newTestServer(t, withCheck("mongo", failingPinger{}))
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "-o", "json", "system", "ready")
		if err == nil || !strings.Contains(err.Error(), "not ready") {
			t.Fatalf("error = %v, want not ready", err)
		}

		var got readyResult
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("decode %q: %v", stdout, err)
		}
		if got.Status != "unavailable" || got.Checks["mongo"] != "connection refused" || got.Checks["cache"] != "ok" {
			t.Errorf("ready = %+v", got)
		}
	})
}

func TestSystem_Worker(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t)
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "worker")
		if err != nil {
			t.Fatalf("system worker: %v", err)
		}
		if !strings.Contains(stdout, "disabled") {
			t.Errorf("output = %q", stdout)
		}
	})

	t.Run("listening", func(t *testing.T) {
		srv := newTestServer(t, withWorker(stubWorker{status: persist.WorkerStatus{
			State:           "listening",
			EventsProcessed: 9,
		}}))
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "worker")
		if err != nil {
			t.Fatalf("system worker: %v", err)
		}
		if !strings.Contains(stdout, "listening") || !strings.Contains(stdout, "events_processed") {
			t.Errorf("output = %q", stdout)
		}
	})
}

func TestSystem_Sweep(t *testing.T) {
	t.Run("trigger", func(t *testing.T) {
		srv := newTestServer(t, withSweeper(&stubSweeper{}))
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "sweep")
		if err != nil {
			t.Fatalf("system sweep: %v", err)
		}
		for _, want := range []string{"Shadows scanned: 5", "Orphans:         2", "persisted:"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("last before any run", func(t *testing.T) {
		srv := newTestServer(t, withSweeper(&stubSweeper{}))
		stdout, _, err := runCLI(t, "", "--server", srv.URL, "system", "sweep", "--last")
		if err != nil {
			t.Fatalf("system sweep --last: %v", err)
		}
		if !strings.Contains(stdout, "No sweep has run yet.") {
			t.Errorf("output = %q", stdout)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t)
		_, _, err := runCLI(t, "", "--server", srv.URL, "system", "sweep")
		if err == nil || !strings.Contains(err.Error(), "SM-SYS-5030") {
			t.Errorf("error = %v, want SM-SYS-5030", err)
		}
	})

	t.Run("in progress", func(t *testing.T) {
		srv := newTestServer(t, withSweeper(&stubSweeper{err: domain.ErrSweepInProgress}))
		_, _, err := runCLI(t, "", "--server", srv.URL, "system", "sweep")
		if !connection.IsStatus(err, http.StatusConflict) {
			t.Errorf("error = %v, want 409", err)
		}
	})
}
