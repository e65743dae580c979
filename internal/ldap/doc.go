// Package ldap implements the directory synchronization engine: it reads
// persons and groups from an LDAP directory under configurable filters and
// attribute mappings, reconciles them against the local database with
// minimal inserts and updates, and bridges live login attempts by re-binding
// to the directory as the authenticating person.
//
// The directory is the only source of truth; local records are created and
// updated but never deleted, and local credentials are random placeholders
// so every authentication has to pass through the directory.
package ldap
