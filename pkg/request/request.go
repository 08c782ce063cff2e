// Package request holds the checks every handler runs before calling its
// service. Each helper writes the failure response itself and reports
// whether the handler may continue.
package request

import (
	"encoding/json"
	"net/http"

	"gamedoc/pkg/response"
)

func Method(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		response.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// Param returns a required query parameter.
func Param(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		response.Fail(w, http.StatusBadRequest, "Missing "+name+" parameter")
		return "", false
	}
	return v, true
}

func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
