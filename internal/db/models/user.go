package models

// User represents a backend account synchronized from the user-mode
// directory subtree (the original bundle's tl_user). Unlike members, users
// carry a display name and may receive elevated privileges through the
// configured administrative directory group.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `gorm:"primaryKey"`
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100"`
	// Password is the hashed placeholder credential, see Member.Password.
	Password string `gorm:"size:255"`
	// Name is the user's display name (directory cn).
	Name string `gorm:"size:255"`
	// Email is the user's email address (directory mail).
	Email string `gorm:"size:255"`
	// Admin is true while the user is a member of the administrative
	// directory group.
	Admin bool
	// Language is the backend locale, bootstrapped to "en" on creation.
	Language string `gorm:"size:64"`
	// BackendTheme is the backend theme, bootstrapped on creation.
	BackendTheme string `gorm:"size:64"`
	// Groups holds the JSON-encoded list of local group ids, rebuilt on
	// every sync pass. Administrative-group membership never appears here.
	Groups string `gorm:"size:1022"`
	// LdapUidNumber is the directory's numeric person key, the natural
	// key records are matched on. 0 marks a locally created user.
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

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
