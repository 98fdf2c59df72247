package httputil

import (
	"fmt"
	"net/http"
	"strconv"
)

// GetOptionalUint64 parses the query parameter, returning 0 when it is absent.
// A malformed value writes a 400 status code and returns false.
func GetOptionalUint64(w http.ResponseWriter, r *http.Request, key string) (uint64, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s query parameter", key), http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// GetOptionalFloat parses the query parameter, returning def when it is absent.
// A malformed value writes a 400 status code and returns false.
func GetOptionalFloat(w http.ResponseWriter, r *http.Request, key string, def float64) (float64, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s query parameter", key), http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
