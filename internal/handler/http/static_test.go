package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestStaticHandler(t *testing.T) {
	h := newStaticHandler(fstest.MapFS{
		"index.html":     {Data: []byte("index")},
		"assets/app.css": {Data: []byte("body{}")},
	})

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		body    string
		noCache bool
	}{
		{name: "root", method: http.MethodGet, path: "/", status: http.StatusOK, body: "index"},
		{name: "asset", method: http.MethodGet, path: "/assets/app.css", status: http.StatusOK, body: "body{}"},
		{name: "client route", method: http.MethodGet, path: "/users/history", status: http.StatusOK, body: "index", noCache: true},
		{name: "missing asset", method: http.MethodGet, path: "/assets/missing.js", status: http.StatusNotFound},
		{name: "post", method: http.MethodPost, path: "/", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.noCache {
				assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			}
		})
	}
}
