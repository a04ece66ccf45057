package user

import (
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/edvantage/academy/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	// password policy
	pwdMinLen     = 8
	pwdMinLenText = "password must contain at least 8 characters"

	pwdNoSpaceText   = "password must not contain whitespace"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimText = "password cannot be similar to user attributes"
)

func init() {
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, allRolesText)
}

// allRolesValidation checks that provided user roles are all in AllRoles.
func allRolesValidation(fl validator.FieldLevel) bool {
	if roles, ok := fl.Field().Interface().([]string); ok {
		sort.Strings(AllRoles)
		for _, role := range roles {
			idx := sort.SearchStrings(AllRoles, role)
			if idx >= len(AllRoles) || AllRoles[idx] != role {
				return false
			}
		}
		return true
	}
	return false
}

// Validate checks the account creation request, including the password policy
// against the other submitted attributes.
func (nu NewUser) Validate() error {
	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	usr := User{Name: nu.Name, Username: nu.Username, Email: nu.Email}
	return ValidatePassword(nu.Password, usr)
}

// ValidatePassword enforces the password policy: length, no whitespace, not
// all-numeric and not too similar to the user's own attributes.
func ValidatePassword(pwd string, usr User) error {
	fldErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
	}

	if len(pwd) < pwdMinLen {
		return fldErr(pwdMinLenText)
	}
	if strings.ContainsAny(pwd, " \t\n\r") {
		return fldErr(pwdNoSpaceText)
	}
	allNum := true
	for _, r := range pwd {
		if !unicode.IsDigit(r) {
			allNum = false
			break
		}
	}
	if allNum {
		return fldErr(pwdNotAllNumText)
	}

	lowered := strings.ToLower(pwd)
	for _, attr := range []string{usr.Name, usr.Username, usr.Email} {
		if attr == "" {
			continue
		}
		matcher := difflib.NewMatcher(
			strings.Split(lowered, ""),
			strings.Split(strings.ToLower(attr), ""),
		)
		if matcher.QuickRatio() >= pwdMaxSim {
			return fldErr(pwdAttrSimText)
		}
	}
	return nil
}
