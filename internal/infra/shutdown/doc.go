// Package shutdown coordinates graceful process termination.
//
// Components register named hooks as they start; on SIGINT, SIGTERM, an
// explicit Trigger or context cancellation the hooks run newest first
// under a shared timeout:
//
//	h := shutdown.NewHandler(15*time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnShutdown("worker", worker.Stop)
//	err := h.Wait(ctx)
package shutdown
