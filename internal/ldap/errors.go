package ldap

import "errors"

var (
	// ErrUnknownMode is returned when an operator names a mode that does not exist.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrModeNotConfigured is returned when a known mode carries no
	// configuration section.
	ErrModeNotConfigured = errors.New("mode is not configured")

	// ErrMissingBindDN is returned when a mode configuration lacks the
	// bind distinguished name required for directory searches.
	ErrMissingBindDN = errors.New("bind_dn is not configured")
)
