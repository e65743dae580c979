// Package models contains database model definitions for the four
// synchronization target tables. The sync engine itself writes through the
// generic record store with dynamic field sets; these models exist for
// migrations and for typed access from the rest of the application. Local
// columns targeted by a field-mapping configuration must exist here (or be
// added by an operator migration) before a sync pass can write them.
package models

// Member represents a frontend account synchronized from the member-mode
// directory subtree (the original bundle's tl_member).
type Member struct {
	// ID is the unique identifier for the member.
	ID int64 `gorm:"primaryKey"`
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100"`
	// Password is the hashed placeholder credential. It never matches a
	// value a person could present; authentication always goes through
	// the directory.
	Password string `gorm:"size:255"`
	// Firstname is the member's given name (directory givenName).
	Firstname string `gorm:"size:100"`
	// Lastname is the member's family name (directory sn).
	Lastname string `gorm:"size:100"`
	// Email is the member's email address (directory mail).
	Email string `gorm:"size:255"`
	// Login indicates whether the member may log in at all.
	Login bool
	// Groups holds the JSON-encoded list of local group ids the member
	// belongs to, rebuilt on every sync pass.
	Groups string `gorm:"size:1022"`
	// Company, Phone, City, Street, Postal, Country and Language are
	// optional profile columns commonly targeted by field mappings and
	// default values.
	Company  string `gorm:"size:255"`
	Phone    string `gorm:"size:64"`
	City     string `gorm:"size:255"`
	Street   string `gorm:"size:255"`
	Postal   string `gorm:"size:32"`
	Country  string `gorm:"size:64"`
	Language string `gorm:"size:64"`
	// LdapUidNumber is the directory's numeric person key, the natural
	// key records are matched on. 0 marks a locally created member.
	LdapUidNumber int64 `gorm:"index"`
	// Tstamp is the unix timestamp of the last modification.
	Tstamp int64
	// DateAdded is the unix timestamp of record creation.
	DateAdded int64
	// LastLogin and CurrentLogin are unix login timestamps maintained by
	// the authentication bridge.
	LastLogin    int64
	CurrentLogin int64
}

// TableName specifies the database table name for the Member model.
func (Member) TableName() string {
	return "members"
}
