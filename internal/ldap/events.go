package ldap

import "github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"

// Event is a domain event emitted during reconciliation. Events are
// collected in the Result and delivered to the caller instead of being
// dispatched through an implicit event bus; the caller decides how and
// when to deliver them.
type Event interface {
	EventName() string
}

// PersonImported is emitted after a person record was inserted.
type PersonImported struct {
	// Entry is the normalized directory person.
	Entry PersonEntry
	// Fields is the final persisted field set.
	Fields store.Record
}

// EventName implements Event.
func (PersonImported) EventName() string { return "person_imported" }

// PersonUpdated is emitted after a person record was updated.
type PersonUpdated struct {
	Entry  PersonEntry
	Fields store.Record
}

// EventName implements Event.
func (PersonUpdated) EventName() string { return "person_updated" }
