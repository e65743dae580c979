package models

// MemberGroup represents a frontend group synchronized from the member-mode
// directory subtree (the original bundle's tl_member_group). The configured
// administrative group is never materialized here.
type MemberGroup struct {
	ID int64 `gorm:"primaryKey"`
	// Name is the group name (directory cn).
	Name string `gorm:"size:255"`
	// Description is an optional column for field mappings.
	Description string `gorm:"size:255"`
	// LdapGid is the directory's numeric group key, the natural key
	// records are matched on.
	LdapGid int64 `gorm:"index"`
	// Tstamp is the unix timestamp of the last modification.
	Tstamp int64
}

// TableName specifies the database table name for the MemberGroup model.
func (MemberGroup) TableName() string {
	return "member_groups"
}

// UserGroup represents a backend group synchronized from the user-mode
// directory subtree (the original bundle's tl_user_group).
type UserGroup struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"size:255"`
	LdapGid     int64  `gorm:"index"`
	Tstamp      int64
}

// TableName specifies the database table name for the UserGroup model.
func (UserGroup) TableName() string {
	return "user_groups"
}
