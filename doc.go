// Package main provides the entry point for the Contao LDAP bridge.
// It synchronizes persons and groups from an LDAP directory into a
// Contao-style database and bridges live login attempts against the
// directory, so local accounts are created and kept in sync on every
// successful authentication. Synchronization runs either as a one-shot
// CLI command or on demand through a small HTTP service exposing the
// authentication bridge.
package main
