package ldap

import (
	"errors"
	"testing"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
)

// defaultDirectory populates the fake with one person and two groups:
// alice is engineer and administrator.
func defaultDirectory() *fakeClient {
	f := &fakeClient{entries: map[string][]*goldap.Entry{}}

	f.entries[testPersonBaseDN] = []*goldap.Entry{
		personLDAPEntry("alice", "1001", map[string][]string{
			"cn":        {"Alice Adams"},
			"mail":      {"alice@example.org"},
			"givenName": {"Alice"},
			"sn":        {"Adams"},
		}),
	}

	f.entries[testGroupBaseDN] = []*goldap.Entry{
		groupLDAPEntry("engineering", "10", []string{"alice", "alice"}, nil),
		groupLDAPEntry("administrators", "20", []string{"alice"}, nil),
	}

	return f
}

func TestSyncPersonsUserMode(t *testing.T) {
	syncer, st := newTestSyncer(t, defaultDirectory())

	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted, "one group and one person")
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Unchanged)

	// The ordinary group is materialized.
	group, err := st.FindOneBy("user_groups", "ldap_gid = ?", 10)
	require.NoError(t, err)
	assert.Equal(t, "engineering", group["name"])
	assert.NotZero(t, group["tstamp"])

	// The administrative group never is.
	_, err = st.FindOneBy("user_groups", "ldap_gid = ?", testAdminGid)
	require.ErrorIs(t, err, store.ErrNotFound)

	person, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Adams", person["name"])
	assert.Equal(t, "alice@example.org", person["email"])
	assert.EqualValues(t, 1001, person["ldap_uid_number"])
	assert.NotZero(t, person["tstamp"])
	assert.NotZero(t, person["date_added"])

	// Administrative-group membership sets the privilege flag.
	assert.True(t, looselyEqual(true, person["admin"]))

	// Membership in the ordinary group, by local id.
	assert.Equal(t, "[1]", normalize(person["groups"]))

	// Bootstrap defaults of the mode.
	assert.Equal(t, "en", person["language"])
	assert.Equal(t, "flexible", person["backend_theme"])

	// The placeholder credential is stored hashed only.
	password, ok := person["password"].(string)
	require.True(t, ok)
	assert.Contains(t, password, "hashed:")
	assert.Len(t, password, len("hashed:")+32)

	require.Len(t, res.Events, 1)
	imported, ok := res.Events[0].(PersonImported)
	require.True(t, ok)
	assert.Equal(t, "alice", imported.Entry.Username)
	assert.Equal(t, "person_imported", imported.EventName())
}

func TestSyncPersonsIdempotent(t *testing.T) {
	syncer, _ := newTestSyncer(t, defaultDirectory())

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 2, res.Unchanged)
	assert.Empty(t, res.Events)
}

func TestSyncPersonsDryRun(t *testing.T) {
	syncer, st := newTestSyncer(t, defaultDirectory())

	res, err := syncer.SyncPersons(ModeUser, Options{DryRun: true})
	require.NoError(t, err)

	// The would-be writes are reported ...
	assert.Equal(t, 2, res.Inserted)
	require.Len(t, res.Actions, 2)
	assert.Equal(t, OpInsert, res.Actions[0].Op)

	// ... but nothing happened: no rows, no events.
	_, err = st.FindOneBy("user_groups", "ldap_gid = ?", 10)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.FindOneBy("users", "username = ?", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Empty(t, res.Events)
}

func TestSyncPersonsUpdatesChangedFields(t *testing.T) {
	dir := defaultDirectory()
	syncer, st := newTestSyncer(t, dir)

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	before, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)

	dir.entries[testPersonBaseDN] = []*goldap.Entry{
		personLDAPEntry("alice", "1001", map[string][]string{
			"cn":   {"Alice Adams"},
			"mail": {"alice@corp.example.org"},
		}),
	}

	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged, "group did not change")

	after, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@corp.example.org", after["email"])

	// The placeholder credential survives updates.
	assert.Equal(t, before["password"], after["password"])

	require.Len(t, res.Events, 1)
	updated, ok := res.Events[0].(PersonUpdated)
	require.True(t, ok)
	assert.Equal(t, "person_updated", updated.EventName())
	assert.Equal(t, "alice@corp.example.org", updated.Fields["email"])
}

func TestSyncPersonsAdminRevoked(t *testing.T) {
	dir := defaultDirectory()
	syncer, st := newTestSyncer(t, dir)

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	// Drop alice from the administrative group.
	dir.entries[testGroupBaseDN] = []*goldap.Entry{
		groupLDAPEntry("engineering", "10", []string{"alice"}, nil),
		groupLDAPEntry("administrators", "20", nil, nil),
	}

	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	person, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)
	assert.True(t, looselyEqual(false, person["admin"]))
}

func TestSyncPersonsSkipLists(t *testing.T) {
	dir := defaultDirectory()
	dir.entries[testPersonBaseDN] = append(dir.entries[testPersonBaseDN],
		personLDAPEntry("root", "0", nil),
		personLDAPEntry("svc", "999", nil),
		personLDAPEntry("bob", "1002", map[string][]string{"cn": {"Bob B"}}),
	)

	cfg := newTestConfig()
	cfg.User.Person.SkipUids = []string{"bob"}
	cfg.User.Person.SkipUidNumbers = []int64{999}

	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, dir), st, plainEncoder{})

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	for _, username := range []string{"root", "svc", "bob"} {
		_, err = st.FindOneBy("users", "username = ?", username)
		require.ErrorIs(t, err, store.ErrNotFound, "%s must not be synced", username)
	}
}

func TestSyncPersonsSkipGidNumbers(t *testing.T) {
	dir := defaultDirectory()

	cfg := newTestConfig()
	cfg.User.Group.SkipGidNumbers = []int64{10}

	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, dir), st, plainEncoder{})

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	_, err = st.FindOneBy("user_groups", "ldap_gid = ?", 10)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Without the group there is no membership to record.
	person, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, "[]", normalize(person["groups"]))
}

func TestSyncPersonsLimitUids(t *testing.T) {
	dir := defaultDirectory()
	dir.entries[testPersonBaseDN] = append(dir.entries[testPersonBaseDN],
		personLDAPEntry("bob", "1002", map[string][]string{"cn": {"Bob B"}}),
	)

	syncer, st := newTestSyncer(t, dir)

	_, err := syncer.SyncPersons(ModeUser, Options{LimitUids: []string{"bob"}})
	require.NoError(t, err)

	_, err = st.FindOneBy("users", "username = ?", "bob")
	require.NoError(t, err)

	_, err = st.FindOneBy("users", "username = ?", "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncPersonsMemberMode(t *testing.T) {
	dir := defaultDirectory()

	cfg := newTestConfig()
	cfg.Member.Person.FieldMapping = []config.FieldMapping{
		{LdapField: "l", LocalField: "city"},
	}
	cfg.Member.Person.DefaultValues = []config.DefaultValue{
		{Field: "country", Value: "de"},
	}

	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, dir), st, plainEncoder{})

	_, err := syncer.SyncPersons(ModeMember, Options{})
	require.NoError(t, err)

	person, err := st.FindOneBy("members", "username = ?", "alice")
	require.NoError(t, err)

	// Member mode splits the name and has no privilege flag.
	assert.Equal(t, "Alice", person["firstname"])
	assert.Equal(t, "Adams", person["lastname"])
	assert.NotContains(t, person, "admin")

	// The l attribute is absent, so the mapping must not touch the column.
	assert.Empty(t, normalize(person["city"]))

	// Static defaults apply independent of directory content.
	assert.Equal(t, "de", person["country"])

	// Creation default of the mode.
	assert.True(t, looselyEqual(true, person["login"]))

	group, err := st.FindOneBy("member_groups", "ldap_gid = ?", 10)
	require.NoError(t, err)
	assert.Equal(t, "engineering", group["name"])

	// The user mode's administrative group number does not apply here, the
	// group materializes like any other.
	_, err = st.FindOneBy("member_groups", "ldap_gid = ?", testAdminGid)
	require.NoError(t, err)
}

func TestSyncPersonsMappedAttributePresent(t *testing.T) {
	dir := defaultDirectory()
	dir.entries[testPersonBaseDN] = []*goldap.Entry{
		personLDAPEntry("alice", "1001", map[string][]string{
			"givenName": {"Alice"},
			"sn":        {"Adams"},
			"l":         {"Berlin"},
		}),
	}

	cfg := newTestConfig()
	cfg.Member.Person.FieldMapping = []config.FieldMapping{
		{LdapField: "l", LocalField: "city"},
	}

	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, dir), st, plainEncoder{})

	_, err := syncer.SyncPersons(ModeMember, Options{})
	require.NoError(t, err)

	person, err := st.FindOneBy("members", "username = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", person["city"])
}

func TestSyncPersonsSkipsMissingUsername(t *testing.T) {
	dir := defaultDirectory()

	cfg := newTestConfig()
	// Resolve usernames from an attribute the entries don't carry.
	cfg.User.UsernameAttr = "sAMAccountName"

	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, dir), st, plainEncoder{})

	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted, "only the group")

	var count int64
	require.NoError(t, st.DB().Table("users").Count(&count).Error)
	assert.Zero(t, count)
}

func TestSyncPersonLoginTimestamps(t *testing.T) {
	syncer, st := newTestSyncer(t, defaultDirectory())

	res, err := syncer.SyncPerson(ModeUser, "alice", Options{SetLoginTimestamps: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	person, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)

	firstLogin := asInt64(person["current_login"])
	assert.Zero(t, asInt64(person["last_login"]))
	assert.InDelta(t, time.Now().Unix(), firstLogin, 5)

	res, err = syncer.SyncPerson(ModeUser, "alice", Options{SetLoginTimestamps: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	person, err = st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)

	// The previous login shifted into last_login.
	assert.Equal(t, firstLogin, asInt64(person["last_login"]))
	assert.GreaterOrEqual(t, asInt64(person["current_login"]), firstLogin)
}

func TestSyncPersonMatchesExistingByUsername(t *testing.T) {
	syncer, st := newTestSyncer(t, defaultDirectory())

	// A pre-existing local account without a directory key.
	_, err := st.Insert("users", store.Record{
		"username": "alice",
		"password": "legacy",
		"tstamp":   int64(1),
	}, "username")
	require.NoError(t, err)

	res, err := syncer.SyncPerson(ModeUser, "alice", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated, "existing account adopted, not duplicated")

	var count int64
	require.NoError(t, st.DB().Table("users").Where("username = ?", "alice").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	person, err := st.FindOneBy("users", "username = ?", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1001, person["ldap_uid_number"])
	assert.Equal(t, "legacy", person["password"], "credentials are only bootstrapped on creation")
}

func TestSyncPersonsBulkDoesNotAdoptUsername(t *testing.T) {
	syncer, st := newTestSyncer(t, defaultDirectory())

	// A local account that happens to share the username but belongs to a
	// different directory person.
	_, err := st.Insert("users", store.Record{
		"username":        "alice",
		"password":        "legacy",
		"ldap_uid_number": int64(9999),
		"tstamp":          int64(1),
	}, "username")
	require.NoError(t, err)

	// The bulk pass matches by directory key only; it attempts a create and
	// surfaces the unique-username violation instead of silently adopting
	// the unrelated account.
	_, err = syncer.SyncPersons(ModeUser, Options{})
	require.Error(t, err)
}

func TestSyncPersonsEncoderFailure(t *testing.T) {
	cfg := newTestConfig()
	st := newTestStore(t)
	syncer := NewSyncer(cfg, newTestRegistry(cfg, defaultDirectory()), st, failingEncoder{})

	_, err := syncer.SyncPersons(ModeUser, Options{})
	require.Error(t, err)
}

func TestSyncPersonsUnavailableDirectory(t *testing.T) {
	cfg := newTestConfig()
	st := newTestStore(t)

	registry := NewRegistry(cfg)
	registry.dial = func(_ *config.Connection) (Client, error) {
		return nil, errors.New("connection refused")
	}

	syncer := NewSyncer(cfg, registry, st, plainEncoder{})

	// The bulk path degrades to an empty pass instead of failing.
	res, err := syncer.SyncPersons(ModeUser, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Actions)
}

func TestLooselyEqual(t *testing.T) {
	testCases := []struct {
		name string
		a    any
		b    any
		want bool
	}{
		{"bool against driver int", true, int64(1), true},
		{"bool false against zero", false, int64(0), true},
		{"bool mismatch", true, int64(0), false},
		{"string against bytes", "alice", []byte("alice"), true},
		{"int against float driver value", int64(1001), float64(1001), true},
		{"nil against empty string", nil, "", true},
		{"changed string", "a", "b", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, looselyEqual(tc.a, tc.b))
		})
	}
}
