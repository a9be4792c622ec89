package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDPropagates(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-7", seen)
	assert.Equal(t, "corr-7", rec.Header().Get(HeaderCorrelationID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "corr-7", seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderCorrelationID))
}

func TestCORSPolicy(t *testing.T) {
	tests := map[string]struct {
		allow  []string
		origin string
		want   bool
	}{
		"wildcard":         {allow: []string{"*"}, origin: "https://any.example", want: true},
		"listed":           {allow: []string{"https://bigcord.example"}, origin: "https://bigcord.example", want: true},
		"case insensitive": {allow: []string{" https://BigCord.example "}, origin: "https://bigcord.example", want: true},
		"not listed":       {allow: []string{"https://bigcord.example"}, origin: "https://evil.example", want: false},
		"empty list":       {allow: nil, origin: "https://bigcord.example", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, newCORSPolicy(tc.allow).allows(tc.origin))
		})
	}
}
