package config

import "errors"

var (
	// ErrWebServerPortCanNotBeZero is returned when no webserver port is configured.
	ErrWebServerPortCanNotBeZero = errors.New("webserver port can not be 0")

	// ErrEmptyURL is returned when no webserver base url is configured.
	ErrEmptyURL = errors.New("webserver url is empty")

	// ErrNoModeConfigured is returned when neither the user nor the member
	// mode carries a configuration section.
	ErrNoModeConfigured = errors.New("at least one of the user/member sections must be configured")
)
