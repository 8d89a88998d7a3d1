package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		allowed []string
		origin  string
		method  string
		want    string
		status  int
	}{
		{name: "listed origin echoed", allowed: []string{"http://localhost:3000/"}, origin: "http://localhost:3000", method: http.MethodGet, want: "http://localhost:3000", status: http.StatusOK},
		{name: "unlisted origin omitted", allowed: []string{"http://localhost:3000"}, origin: "http://evil.example", method: http.MethodGet, want: "", status: http.StatusOK},
		{name: "empty list allows any", origin: "http://any.example", method: http.MethodGet, want: "*", status: http.StatusOK},
		{name: "preflight short-circuits", allowed: []string{"*"}, origin: "http://a.example", method: http.MethodOptions, want: "*", status: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/chapters", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			WithCORS(tc.allowed, next).ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("allow-origin = %q, want %q", got, tc.want)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}
