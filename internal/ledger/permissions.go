package ledger

import "fmt"

// Role is the caller's role within a unit, as established by the host
// application.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleLeader    Role = "leader"
	RoleParent    Role = "parent"
	// RoleSystem is used by automated feeds such as processor reconciliation.
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleLeader, RoleParent, RoleSystem:
		return true
	}
	return false
}

// Caller is the already-authenticated identity performing an operation.
type Caller struct {
	UserID string
	Role   Role
}

// CanMutateLedger reports whether a role may bill, record payments, transfer,
// and void.
func CanMutateLedger(r Role) bool {
	return r == RoleAdmin || r == RoleTreasurer
}

// CanReconcile reports whether a role may ingest, link and reconcile
// processor transactions.
func CanReconcile(r Role) bool {
	return CanMutateLedger(r) || r == RoleSystem
}

// CanRepair reports whether a role may overwrite cached balances from a replay.
func CanRepair(r Role) bool {
	return r == RoleAdmin
}

func authorize(c Caller, allowed func(Role) bool, op string) error {
	if c.UserID == "" || !allowed(c.Role) {
		return fmt.Errorf("%w: %s requires a different role than %q", ErrForbidden, op, c.Role)
	}
	return nil
}
