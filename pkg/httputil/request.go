package httputil

import "net/http"

// QueryString returns a query parameter or the default.
func QueryString(r *http.Request, key, defaultVal string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultVal
}
