package ldap

import (
	"fmt"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
)

// Mode is a named synchronization partition selecting an independent
// configuration, directory connection and pair of target tables.
type Mode string

const (
	// ModeUser syncs backend users (single display name, admin flag).
	ModeUser Mode = Mode(config.ModeUser)
	// ModeMember syncs frontend members (first/last name, login flag).
	ModeMember Mode = Mode(config.ModeMember)
)

// Modes returns all known modes in a stable order.
func Modes() []Mode {
	return []Mode{ModeUser, ModeMember}
}

// ParseMode validates an operator-supplied mode name.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeUser, ModeMember:
		return Mode(name), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Spec carries the mode-specific field set as data, so the read, resolve
// and reconcile stages don't re-branch on the mode.
type Spec struct {
	// PersonTable and GroupTable are the local target tables.
	PersonTable string
	GroupTable  string
	// SingleName selects between one display name column filled from cn
	// (user mode) and firstname/lastname columns filled from givenName
	// and sn (member mode).
	SingleName bool
	// SupportsAdminFlag is true if the mode carries a local privilege
	// column driven by administrative-group membership.
	SupportsAdminFlag bool
	// BootstrapDefaults are applied on record creation only, and only to
	// columns no directory mapping or configured default already set.
	BootstrapDefaults map[string]any
}

// Spec returns the field set of the mode.
func (m Mode) Spec() Spec {
	if m == ModeUser {
		return Spec{
			PersonTable:       "users",
			GroupTable:        "user_groups",
			SingleName:        true,
			SupportsAdminFlag: true,
			BootstrapDefaults: map[string]any{
				"language":      "en",
				"backend_theme": "flexible",
			},
		}
	}

	return Spec{
		PersonTable:       "members",
		GroupTable:        "member_groups",
		SingleName:        false,
		SupportsAdminFlag: false,
		BootstrapDefaults: map[string]any{
			"login": true,
		},
	}
}
