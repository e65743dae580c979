package ldap

import (
	"github.com/rs/zerolog/log"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/db/store"
)

// Bridge authenticates persons against the directory and keeps their local
// record fresh on successful login. It fails closed: any error on the path
// yields a plain rejection, the caller never learns whether the username
// exists, the directory was down or the password was wrong.
type Bridge struct {
	cfg      *config.Config
	registry *Registry
	reader   *Reader
	syncer   *Syncer
}

// NewBridge creates the authentication bridge on top of a syncer, sharing
// its reader and connection registry.
func NewBridge(cfg *config.Config, registry *Registry, syncer *Syncer) *Bridge {
	return &Bridge{
		cfg:      cfg,
		registry: registry,
		reader:   syncer.reader,
		syncer:   syncer,
	}
}

// Authenticate verifies the credentials by resolving the person's DN and
// binding as that person. The reason for a rejection is logged but never
// returned.
func (b *Bridge) Authenticate(mode Mode, username, password string) bool {
	// An empty password would turn the person bind into an anonymous bind,
	// which some servers accept.
	if username == "" || password == "" {
		return false
	}

	persons, err := b.reader.Persons(mode)
	if err != nil {
		return false
	}

	p, ok := persons[username]
	if !ok || p.DN == "" {
		log.Debug().Str("mode", string(mode)).Msg("login rejected, username not resolvable")

		return false
	}

	conn, err := b.registry.Connection(mode)
	if err != nil {
		return false
	}

	bindErr := conn.Bind(p.DN, password)

	// Rebind the service account so the cached connection stays usable for
	// subsequent searches.
	if mc := b.cfg.Mode(string(mode)); mc != nil {
		if err := conn.Bind(mc.BindDN, mc.BindPassword); err != nil {
			log.Warn().Err(err).Str("mode", string(mode)).Msg("service account rebind failed")
		}
	}

	if bindErr != nil {
		log.Debug().Err(bindErr).Str("mode", string(mode)).Msg("login rejected, person bind failed")

		return false
	}

	return true
}

// Login authenticates and, on success, synchronizes the person's local
// record including the login timestamp shift. Changed fields are mirrored
// onto live, the caller's in-memory representation of the session person.
// The ok result reports the authentication outcome; a non-nil error means
// authentication succeeded but persisting the record failed.
func (b *Bridge) Login(mode Mode, username, password string, live store.Record) (bool, *Result, error) {
	if !b.Authenticate(mode, username, password) {
		return false, nil, nil
	}

	res, err := b.syncer.SyncPerson(mode, username, Options{
		SetLoginTimestamps: true,
		Live:               live,
	})
	if err != nil {
		return true, nil, err
	}

	return true, res, nil
}
