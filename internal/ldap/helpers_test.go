package ldap

import (
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/models"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
)

// Directory layout shared by the tests.
const (
	testPersonBaseDN = "ou=people,dc=example,dc=org"
	testGroupBaseDN  = "ou=groups,dc=example,dc=org"
	testBindDN       = "cn=readonly,dc=example,dc=org"
	testBindPassword = "service-secret"
	testAdminGid     = int64(20)
)

type bindCall struct {
	dn       string
	password string
}

// fakeClient is an in-memory directory. Entries are keyed by search base
// DN; bindErr lets tests reject individual bind credentials.
type fakeClient struct {
	mu        sync.Mutex
	entries   map[string][]*goldap.Entry
	searchErr error
	bindErr   func(dn, password string) error
	binds     []bindCall
	closed    bool
}

func (f *fakeClient) Bind(dn, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.binds = append(f.binds, bindCall{dn: dn, password: password})

	if f.bindErr != nil {
		return f.bindErr(dn, password)
	}

	return nil
}

func (f *fakeClient) Search(req *goldap.SearchRequest) (*goldap.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}

	return &goldap.SearchResult{Entries: f.entries[req.BaseDN]}, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// personLDAPEntry builds a directory person entry under the person base DN.
func personLDAPEntry(uid string, uidNumber string, attrs map[string][]string) *goldap.Entry {
	all := map[string][]string{
		"uid":       {uid},
		"uidNumber": {uidNumber},
	}

	for k, v := range attrs {
		all[k] = v
	}

	return goldap.NewEntry("uid="+uid+","+testPersonBaseDN, all)
}

// groupLDAPEntry builds a directory group entry under the group base DN.
func groupLDAPEntry(cn string, gidNumber string, memberUids []string, extra map[string][]string) *goldap.Entry {
	all := map[string][]string{
		"cn":        {cn},
		"gidNumber": {gidNumber},
		"memberUid": memberUids,
	}

	for k, v := range extra {
		all[k] = v
	}

	return goldap.NewEntry("cn="+cn+","+testGroupBaseDN, all)
}

// newTestConfig configures both modes against the shared test layout.
func newTestConfig() *config.Config {
	modeConfig := func() *config.ModeConfig {
		return &config.ModeConfig{
			BindDN:       testBindDN,
			BindPassword: testBindPassword,
			UsernameAttr: "uid",
			Person: config.PersonConfig{
				BaseDN: testPersonBaseDN,
				Filter: "(cn=*)",
			},
			Group: config.GroupConfig{
				BaseDN: testGroupBaseDN,
				Filter: "(cn=*)",
			},
		}
	}

	cfg := &config.Config{
		User:   modeConfig(),
		Member: modeConfig(),
	}
	cfg.User.Person.AdminGidNumber = testAdminGid

	return cfg
}

// newTestRegistry wires the fake directory into a registry for both modes.
func newTestRegistry(cfg *config.Config, client Client) *Registry {
	r := NewRegistry(cfg)
	r.dial = func(_ *config.Connection) (Client, error) {
		return client, nil
	}

	return r
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.UserGroup{},
		&models.Member{},
		&models.MemberGroup{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return store.New(db)
}

// plainEncoder makes hashed placeholders recognizable in assertions.
type plainEncoder struct{}

func (plainEncoder) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

// failingEncoder simulates an unusable credential backend.
type failingEncoder struct{}

func (failingEncoder) Hash(string) (string, error) {
	return "", errors.New("encoder unavailable")
}

func newTestSyncer(t *testing.T, client Client) (*Syncer, *store.Store) {
	t.Helper()

	cfg := newTestConfig()
	st := newTestStore(t)

	return NewSyncer(cfg, newTestRegistry(cfg, client), st, plainEncoder{}), st
}
