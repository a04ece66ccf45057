package tests

import (
	"net/http"
	"testing"

	"github.com/edvantage/academy/core"
)

func TestServer_home(t *testing.T) {
	e := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	e.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	if want := "Welcome to " + core.Conf.AppName + " API!"; rec.Body.String() != want {
		t.Errorf("body = %q; want %q", rec.Body.String(), want)
	}
}

func TestServer_authRequired(t *testing.T) {
	e := setup(t)

	paths := []string{"/v1/students", "/v1/payments", "/v1/batches", "/v1/branches", "/v1/users"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tt := httpTest{
				method:   http.MethodGet,
				path:     path,
				wantCode: http.StatusUnauthorized,
				wantData: marshallObj(t, errMissingToken),
			}
			req, rec := newRequest(tt.method, tt.path)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
