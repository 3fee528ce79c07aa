// Package durable holds archived sessions.
//
// A record is inserted once per persisted session and never updated.
// Backends:
//
//   - Mongo: primary store (database "Chats", collection "chats").
//   - Badger: embedded store for single-node deployments.
//   - Dynamo: DynamoDB table keyed by SESSION#<id> / REC#<record id>.
//   - Memory: tests and local development.
//
// Insert is not idempotent. A crash between insert and shadow cleanup can
// archive the same session twice; readers should treat FindBySession as
// returning one or more snapshots of the session.
package durable
