// Package httputil provides small helpers for the JSON endpoints:
// response encoding, error payloads and query parsing.
package httputil
