// Package permission holds the static role → action grants. It is data, not
// logic: the three role sets overlap but do not inherit from each other, so
// edits must be applied to every set that shares an action.
package permission

import "strings"

// NoActions is returned by ActionList for roles without a declared set.
const NoActions = "No actions available for this role"

var grants = map[string][]string{
	"admin": {
		"create_role", "read_roles", "update_role", "delete_role",
		"read_users", "delete_user",
		"create_task", "read_tasks", "read_one_task", "update_task", "delete_task",
	},
	"manager": {
		"read_roles",
		"read_users", "delete_user",
		"create_task", "read_tasks", "read_one_task", "update_task", "delete_task",
	},
	"others": {
		"read_roles",
		"read_users",
		"create_task", "read_tasks", "read_one_task", "update_task", "delete_task",
	},
}

// display lists the actions shown to users, in declared order. The verbs
// intentionally differ from the grant identifiers (read_role vs read_roles,
// view_users vs read_users); both tables track the upstream product copy.
var display = map[string][]string{
	"admin": {
		"create_role", "read_role", "update_role", "delete_role",
		"view_users", "delete_user",
		"create_task", "read_task", "read_one_task", "update_task", "delete_task",
	},
	"manager": {
		"read_role",
		"view_users", "delete_user",
		"create_task", "read_task", "read_one_task", "update_task", "delete_task",
	},
	"others": {
		"read_role",
		"view_users",
		"create_task", "read_task", "read_one_task", "update_task", "delete_task",
	},
}

// Has reports whether the role's grant set contains the action.
// Unknown roles have no grants.
func Has(role, action string) bool {
	for _, a := range grants[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Actions returns a copy of the role's display actions in declared order,
// or nil for unknown roles.
func Actions(role string) []string {
	src, ok := display[role]
	if !ok {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// ActionList renders the role's display actions as a comma-separated string,
// or the NoActions sentinel for unknown roles.
func ActionList(role string) string {
	acts := Actions(role)
	if acts == nil {
		return NoActions
	}
	return strings.Join(acts, ", ")
}
