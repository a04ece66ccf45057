package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/edvantage/academy/apps/api/echo"
	"github.com/edvantage/academy/core/user"
)

func TestUserApi_login(t *testing.T) {
	e := setup(t)
	e.createUser(t, "kalima", "S3cret-pass!", user.AccountantRoles)

	deactivated := e.createUser(t, "mutombo", "S3cret-pass!", user.TeacherRoles)
	deactivated.IsActive = false
	if _, err := e.usrRepo.UpdateUser(context.Background(), deactivated); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	tests := []httpTest{
		{
			name:     "wrong password",
			body:     marshallObj(t, LoginRequest{Username: "kalima", Password: "nope-nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown user",
			body:     marshallObj(t, LoginRequest{Username: "ghost", Password: "S3cret-pass!"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marshallObj(t, LoginRequest{Username: "mutombo", Password: "S3cret-pass!"}),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Username: "Kalima", Password: "S3cret-pass!"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("login did not return a token")
		}
	})
}

func TestUserApi_tokenRefresh(t *testing.T) {
	e := setup(t)
	usr := e.createUser(t, "kalima", "S3cret-pass!", user.AccountantRoles)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	e.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling LoginResponse: %v", err)
	}
	if resp.Token == "" {
		t.Error("refresh did not return a token")
	}
}

func TestUserApi_register(t *testing.T) {
	e := setup(t)
	owner := e.createUser(t, "owner", "S3cret-pass!", []string{user.RoleAdminOwner})
	manager := e.createUser(t, "manager", "S3cret-pass!", []string{user.RoleAdminManager})

	newAccount := func(uname string, roles []string) []byte {
		return marshallObj(t, user.NewUser{
			Name:     "New Hire",
			Username: uname,
			Email:    uname + "@test.cd",
			Password: "N0t-so-s3cret",
			Roles:    roles,
		})
	}

	tests := []httpTest{
		{
			name:     "owner creates an accountant",
			token:    getToken(t, owner),
			body:     newAccount("counter", user.AccountantRoles),
			wantCode: http.StatusCreated,
		},
		{
			name:     "manager cannot mint an owner",
			token:    getToken(t, manager),
			body:     newAccount("sneaky", []string{user.RoleAdminOwner}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			e.server.ServeHTTP(rec, req)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("code = %v; want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserApi_retrieve(t *testing.T) {
	e := setup(t)
	owner := e.createUser(t, "owner", "S3cret-pass!", []string{user.RoleAdminOwner})
	teacher := e.createUser(t, "teach", "S3cret-pass!", user.TeacherRoles)

	tests := []httpTest{
		{
			name:     "self lookup",
			path:     "/v1/users/" + teacher.ID,
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
		},
		{
			name:     "non-admin cannot look up others",
			path:     "/v1/users/" + owner.ID,
			token:    getToken(t, teacher),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin looks up anyone",
			path:     "/v1/users/" + teacher.ID,
			token:    getToken(t, owner),
			wantCode: http.StatusOK,
		},
		{
			name:     "teacher cannot list users",
			path:     "/v1/users",
			token:    getToken(t, teacher),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			e.server.ServeHTTP(rec, req)
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("code = %v; want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
