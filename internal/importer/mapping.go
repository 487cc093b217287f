// Package importer reconciles raw tabular rows from spreadsheet exports into
// normalized transaction records ready for bulk insertion.
package importer

// Role is the semantic meaning a user assigns to an import column.
type Role string

const (
	RoleAmount Role = "amount"
	RoleDate   Role = "date"
	RolePayee  Role = "payee"
	RoleNotes  Role = "notes"

	// RoleSkip is the sentinel for "leave this column unmapped".
	RoleSkip Role = "skip"
)

// RequiredRoles must all be assigned before a grid can be reconciled.
var RequiredRoles = []Role{RoleAmount, RoleDate, RolePayee}

// Mapping records which column index carries which role. At most one column
// holds a given role at a time.
type Mapping struct {
	roles map[int]Role
}

func NewMapping() *Mapping {
	return &Mapping{roles: make(map[int]Role)}
}

// Assign binds a role to a column. Assigning a role that another column
// already holds unassigns it there first (last assignment wins). Assigning
// RoleSkip or the empty role unassigns the column.
func (m *Mapping) Assign(column int, role Role) {
	if role == RoleSkip || role == "" {
		delete(m.roles, column)
		return
	}
	for col, r := range m.roles {
		if r == role {
			delete(m.roles, col)
		}
	}
	m.roles[column] = role
}

// RoleFor returns the role assigned to a column, or "" when unassigned.
func (m *Mapping) RoleFor(column int) Role {
	return m.roles[column]
}

// AssignedCount returns the number of columns with an assigned role.
func (m *Mapping) AssignedCount() int {
	return len(m.roles)
}

// Complete reports whether every required role has been assigned to some
// column. This checks the role set itself, not just the assignment count, so
// three optional assignments never satisfy the gate.
func (m *Mapping) Complete() bool {
	assigned := make(map[Role]bool, len(m.roles))
	for _, r := range m.roles {
		assigned[r] = true
	}
	for _, required := range RequiredRoles {
		if !assigned[required] {
			return false
		}
	}
	return true
}
