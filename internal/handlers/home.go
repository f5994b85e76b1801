package handlers

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var homePage []byte

// Home serves the static single-page front-end.
func Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(homePage)
}
