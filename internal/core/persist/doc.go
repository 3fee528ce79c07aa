// Package persist moves expired sessions from the cache into the durable
// archive.
//
// Two triggers share one Persister:
//
//   - Worker listens for expired volatile keys and persists the matching
//     shadow copy. It reconnects with capped exponential backoff when the
//     cache connection fails.
//   - Sweeper periodically scans shadow keys and persists those whose
//     volatile key has been gone for two consecutive sweeps. It picks up
//     explicit deletes, lost notifications and failed inserts.
//
// A shadow is deleted only after the archive acknowledged the insert, or
// when it is malformed or holds nothing worth archiving. Delivery is
// at least once: a crash between insert and shadow deletion produces a
// duplicate record on the next attempt.
//
// Exactly one process should run the Worker and Sweeper against a given
// cache. The in-flight guard only deduplicates within a process.
package persist
