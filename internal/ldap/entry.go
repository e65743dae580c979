package ldap

// Fixed directory attribute names. Configurable attributes (the username
// attribute and mapped fields) come from the mode configuration.
const (
	attrUID       = "uid"
	attrUIDNumber = "uidNumber"
	attrMail      = "mail"
	attrCN        = "cn"
	attrGivenName = "givenName"
	attrSN        = "sn"
	attrGIDNumber = "gidNumber"
	attrMemberUID = "memberUid"
)

// PersonEntry is one normalized directory person. Uid and UidNumber are
// always non-empty; entries lacking them never leave the reader.
type PersonEntry struct {
	// Uid is the stable external identifier (directory uid attribute).
	Uid string
	// UidNumber is the numeric person key used to match local records.
	UidNumber int64
	// DN is used only for bind-as-user authentication, never persisted.
	DN string
	// Username is the value of the configured username attribute, empty
	// if the attribute is absent on the entry.
	Username string
	// Email is the directory mail attribute.
	Email string
	// FirstName and LastName are filled for member mode, Name for user mode.
	FirstName string
	LastName  string
	Name      string
	// Mapped holds local column -> value for every configured field
	// mapping whose source attribute is present on the entry. Absent
	// attributes are not mapped, never defaulted to empty.
	Mapped map[string]string
	// Defaults holds local column -> literal for every configured static
	// default, applied independent of directory content.
	Defaults map[string]string
}

// GroupEntry is one normalized directory group.
type GroupEntry struct {
	// Gid is the numeric group key used to match local records.
	Gid int64
	// Name is the directory cn attribute.
	Name string
	// Admin is true iff the mode configures an administrative group
	// number and it equals Gid. Administrative groups are never
	// materialized locally.
	Admin bool
	// MemberUids is the deduplicated list of member person uids.
	MemberUids []string

	Mapped   map[string]string
	Defaults map[string]string
}
