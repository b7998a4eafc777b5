package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireBearer wraps a handler with bearer-token authentication. An empty
// configured token disables the check entirely. Token comparison is
// constant-time so response timing does not leak prefix matches.
func (s *apiServer) requireBearer(token string, next http.HandlerFunc) http.HandlerFunc {
	want := []byte(strings.TrimSpace(token))
	if len(want) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
