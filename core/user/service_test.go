package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/user"
	emailsvc "github.com/edvantage/academy/services/email"
	inmemdb "github.com/edvantage/academy/storage/database/inmem"
)

func setup(t *testing.T) *user.Service {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	return user.NewService(inmemdb.NewUserRepository(db), emailsvc.NewConsoleService())
}

func newAccount(uname, email string) user.NewUser {
	return user.NewUser{
		Name:     "Asha Rao",
		Username: uname,
		Email:    email,
		Password: "N0t-so-s3cret",
		Roles:    []string{user.RoleAccountant},
	}
}

func TestService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, newAccount("AshaRao", "ASHA@test.cd"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if usr.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if usr.Username != "asharao" {
		t.Errorf("Username = %q, want lowered %q", usr.Username, "asharao")
	}
	if usr.Email != "asha@test.cd" {
		t.Errorf("Email = %q, want lowered %q", usr.Email, "asha@test.cd")
	}
	if !usr.IsActive {
		t.Error("IsActive = false, want true")
	}
	if err := usr.CheckPassword("N0t-so-s3cret"); err != nil {
		t.Errorf("CheckPassword() failed on the stored hash: %v", err)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d welcome emails, want 1", len(emailsvc.SentMessages))
	}
	if to := emailsvc.SentMessages[0].To; len(to) != 1 || to[0].Address != "asha@test.cd" {
		t.Errorf("welcome email recipients = %v, want asha@test.cd", to)
	}
}

func TestService_Create_uniqueness(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, newAccount("asharao", "asha@test.cd")); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
	}{
		{name: "duplicate username", nu: newAccount("asharao", "other@test.cd"), wantField: "username"},
		{name: "duplicate email", nu: newAccount("other", "asha@test.cd"), wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nu)
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok {
				t.Fatalf("Create() error = %v, want *core.ValidationError", err)
			}
			var found bool
			for _, fld := range vErr.Fields {
				if fld.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("ValidationError.Fields = %v, want field %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, newAccount("asharao", "asha@test.cd"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if _, err = svc.ResetPassword(ctx, usr, "1234"); err == nil {
		t.Error("ResetPassword() accepted a password violating the policy")
	}

	usr, err = svc.ResetPassword(ctx, usr, "Fresh-passw0rd")
	if err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	got, err := svc.GetByUsername(ctx, "asharao")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if err := got.CheckPassword("Fresh-passw0rd"); err != nil {
		t.Errorf("CheckPassword() failed after reset: %v", err)
	}
	if err := got.CheckPassword("N0t-so-s3cret"); err == nil {
		t.Error("CheckPassword() still accepts the old password")
	}
}
