package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/utafrali/storefront-checkout/pkg/logger"
)

func TestIPAllowlist(t *testing.T) {
	handler := IPAllowlist([]string{"127.0.0.0/8", "not-a-cidr"}, logger.Discard())(okHandler())

	tests := []struct {
		name       string
		remoteAddr string
		want       int
	}{
		{name: "loopback allowed", remoteAddr: "127.0.0.1:5555", want: http.StatusOK},
		{name: "outside range", remoteAddr: "10.1.2.3:5555", want: http.StatusForbidden},
		{name: "no port", remoteAddr: "127.0.0.2", want: http.StatusOK},
		{name: "garbage", remoteAddr: "???", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRegisterPprof_DeniesOutsideAllowlist(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.1/32"}, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.168.1.10:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}
