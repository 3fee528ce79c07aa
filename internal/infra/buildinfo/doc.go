// Package buildinfo reports the version of the running binary.
//
// Version, Commit and BuildTime are injected at link time:
//
//	go build -ldflags "-X github.com/yndnr/shopmate-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected it is read from the VCS stamp the Go
// toolchain embeds, and GoVersion always comes from the runtime.
package buildinfo
