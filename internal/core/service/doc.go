// Package service provides the session-facing services of shopmate.
//
// Services define the narrow storage interfaces they depend on, so any
// cache or archive backend that satisfies them can be injected.
//
//   - SessionService: create, read, overwrite and delete live sessions
//     over the dual-key (volatile + shadow) layout
//   - ArchiveService: read-only access to persisted sessions
//
// Services hold no per-session state and are safe for concurrent use.
package service
