package helpers

import (
	"net/http"
	"strconv"
)

// PathID reads a positive integer path value. On a missing or malformed value
// it writes a 400 JSON error and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	s := r.PathValue(name)
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
