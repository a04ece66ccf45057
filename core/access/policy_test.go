package access_test

import (
	"testing"

	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/user"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		res   access.Resource
		act   access.Action
		want  bool
	}{
		{
			name:  "owner writes branches",
			roles: []string{user.RoleAdminOwner},
			res:   access.ResourceBranches,
			act:   access.ActionWrite,
			want:  true,
		},
		{
			name:  "branch manager writes batches",
			roles: []string{user.RoleAdminManager},
			res:   access.ResourceBatches,
			act:   access.ActionWrite,
			want:  true,
		},
		{
			name:  "accountant collects payments",
			roles: []string{user.RoleAccountant},
			res:   access.ResourcePayments,
			act:   access.ActionWrite,
			want:  true,
		},
		{
			name:  "accountant cannot create batches",
			roles: []string{user.RoleAccountant},
			res:   access.ResourceBatches,
			act:   access.ActionWrite,
			want:  false,
		},
		{
			name:  "teacher marks attendance",
			roles: []string{user.RoleTeacher},
			res:   access.ResourceAttendance,
			act:   access.ActionWrite,
			want:  true,
		},
		{
			name:  "teacher reads students",
			roles: []string{user.RoleTeacher},
			res:   access.ResourceStudents,
			act:   access.ActionRead,
			want:  true,
		},
		{
			name:  "teacher cannot touch payments",
			roles: []string{user.RoleTeacher},
			res:   access.ResourcePayments,
			act:   access.ActionRead,
			want:  false,
		},
		{
			name:  "teacher cannot read reports",
			roles: []string{user.RoleTeacher},
			res:   access.ResourceReports,
			act:   access.ActionRead,
			want:  false,
		},
		{
			name:  "student denied everywhere",
			roles: []string{user.RoleStudent},
			res:   access.ResourceStudents,
			act:   access.ActionRead,
			want:  false,
		},
		{
			name:  "no roles",
			roles: nil,
			res:   access.ResourceStudents,
			act:   access.ActionRead,
			want:  false,
		},
		{
			name:  "mixed roles take the strongest grant",
			roles: []string{user.RoleTeacher, user.RoleAccountant},
			res:   access.ResourcePayments,
			act:   access.ActionWrite,
			want:  true,
		},
		{
			name:  "reports have no write action",
			roles: []string{user.RoleAdminOwner},
			res:   access.ResourceReports,
			act:   access.ActionWrite,
			want:  false,
		},
		{
			name:  "unknown resource denied",
			roles: []string{user.RoleAdminOwner},
			res:   access.Resource("courses"),
			act:   access.ActionRead,
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := access.Allow(tt.roles, tt.res, tt.act); got != tt.want {
				t.Errorf("Allow(%v, %s, %s) = %v, want %v", tt.roles, tt.res, tt.act, got, tt.want)
			}
		})
	}
}
