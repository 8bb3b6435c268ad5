package auth

import (
	"fmt"
	"slices"

	"taskhub/internal/domain"
)

const (
	PermTaskPurge      = "trash.purge"
	PermTrashEmpty     = "trash.empty"
	PermRemindersQueue = "reminders.queue"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Every signed-in, active user may read the board, edit tasks, move them to and
// from the trash, comment and read their own notifications. The permissions
// below are the irreversible or team-wide operations.
var rolePermissions = map[domain.Role][]string{
	domain.RoleGroupLeader: {PermRemindersQueue, PermTaskPurge, PermTrashEmpty},
	domain.RoleMember:      {},
}

// Permissions lists the extra permissions granted to role, sorted.
func Permissions(role domain.Role) []string {
	out := append([]string{}, rolePermissions[role]...)
	slices.Sort(out)
	return out
}

func HasPermission(u domain.User, perm string) bool {
	return slices.Contains(rolePermissions[u.Role], perm)
}

// Require returns ForbiddenError unless u holds perm.
func Require(u domain.User, perm string) error {
	if !HasPermission(u, perm) {
		return ForbiddenError{Permission: perm}
	}
	return nil
}
