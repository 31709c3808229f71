// Package session keeps per-browser-session state of the
// authentication hook, currently the pending course selections that
// survive the redirect to the selection screen and back.
//
// Two implementations exist: a Redis backed store for production and
// an in-memory store for single-node deployments and tests. Entries
// expire; an expired selection simply sends the user through the
// login flow again.
package session
