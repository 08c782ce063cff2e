package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	assert.False(t, Method(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.MethodPost))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	assert.True(t, Method(rr, httptest.NewRequest(http.MethodPost, "/", nil), http.MethodPost))
}

func TestParam(t *testing.T) {
	rr := httptest.NewRecorder()
	v, ok := Param(rr, httptest.NewRequest(http.MethodGet, "/?docId=abc", nil), "docId")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	rr = httptest.NewRecorder()
	_, ok = Param(rr, httptest.NewRequest(http.MethodGet, "/", nil), "docId")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Missing docId parameter")
}

func TestDecode(t *testing.T) {
	var body struct {
		Title string `json:"title"`
	}
	rr := httptest.NewRecorder()
	assert.True(t, Decode(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Combat"}`)), &body))
	assert.Equal(t, "Combat", body.Title)

	rr = httptest.NewRecorder()
	assert.False(t, Decode(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
