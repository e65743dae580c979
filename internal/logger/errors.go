package logger

import "errors"

var (
	// ErrServiceNameIsEmpty is returned when no service name is configured.
	ErrServiceNameIsEmpty = errors.New("log config service name is empty")

	// ErrAppNameIsEmpty is returned when no app name is configured.
	ErrAppNameIsEmpty = errors.New("log config app name is empty")
)
