// Package access centralizes the capability checks previously scattered as
// per-endpoint role comparisons. Handlers ask Allow(roles, resource, action)
// exactly once at the service boundary.
package access

import (
	"strings"

	"github.com/edvantage/academy/core/user"
)

type (
	Resource string
	Action   string
)

const (
	ResourceStudents   Resource = "students"
	ResourcePayments   Resource = "payments"
	ResourceBatches    Resource = "batches"
	ResourceAttendance Resource = "attendance"
	ResourceBranches   Resource = "branches"
	ResourceReports    Resource = "reports"
	ResourceUsers      Resource = "users"

	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// policy maps each (resource, action) pair to the role prefixes allowed to
// perform it. Absent pairs are denied.
var policy = map[Resource]map[Action][]string{
	ResourceStudents: {
		ActionRead:  {user.RoleAdmin, user.RoleAccountant, user.RoleTeacher},
		ActionWrite: {user.RoleAdmin, user.RoleAccountant},
	},
	ResourcePayments: {
		ActionRead:  {user.RoleAdmin, user.RoleAccountant},
		ActionWrite: {user.RoleAdmin, user.RoleAccountant},
	},
	ResourceBatches: {
		ActionRead:  {user.RoleAdmin, user.RoleAccountant, user.RoleTeacher},
		ActionWrite: {user.RoleAdmin},
	},
	ResourceAttendance: {
		ActionRead:  {user.RoleAdmin, user.RoleAccountant, user.RoleTeacher},
		ActionWrite: {user.RoleAdmin, user.RoleTeacher},
	},
	ResourceBranches: {
		ActionRead:  {user.RoleAdmin, user.RoleAccountant},
		ActionWrite: {user.RoleAdmin},
	},
	ResourceReports: {
		ActionRead: {user.RoleAdmin, user.RoleAccountant},
	},
	ResourceUsers: {
		ActionRead:  {user.RoleAdmin},
		ActionWrite: {user.RoleAdmin},
	},
}

// Allow reports whether any of the given roles grants action on resource.
func Allow(roles []string, res Resource, act Action) bool {
	actions, ok := policy[res]
	if !ok {
		return false
	}
	allowed, ok := actions[act]
	if !ok {
		return false
	}
	for _, role := range roles {
		for _, prefix := range allowed {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}
