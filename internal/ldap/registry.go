package ldap

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
)

// DialFunc establishes a directory connection. It is a field on Registry
// so tests can substitute a fake directory.
type DialFunc func(cfg *config.Connection) (Client, error)

// Registry caches one bound directory connection per mode. It replaces the
// original's process-global connection state with an explicit object owned
// by the caller; all access is mutex-guarded. Cached connections live until
// Close, a directory-side credential rotation requires a new Registry.
type Registry struct {
	mu    sync.Mutex
	cfg   *config.Config
	dial  DialFunc
	conns map[Mode]Client
}

// NewRegistry creates a connection registry for the given configuration.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:   cfg,
		dial:  Dial,
		conns: make(map[Mode]Client),
	}
}

// Connection returns the cached bound connection for mode, establishing and
// caching it on first use. Configuration and connection failures are
// returned as errors; callers on the bulk query path downgrade them to
// "nothing to sync" while operator-facing callers surface them.
func (r *Registry) Connection(mode Mode) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[mode]; ok {
		return conn, nil
	}

	mc := r.cfg.Mode(string(mode))
	if mc == nil {
		return nil, fmt.Errorf("%w: %s", ErrModeNotConfigured, mode)
	}

	if mc.BindDN == "" {
		return nil, fmt.Errorf("%w: mode %s", ErrMissingBindDN, mode)
	}

	conn, err := r.dial(&mc.Connection)
	if err != nil {
		return nil, fmt.Errorf("mode %s: %w", mode, err)
	}

	if err := conn.Bind(mc.BindDN, mc.BindPassword); err != nil {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}

		return nil, fmt.Errorf("failed to bind with service account for mode %s: %w", mode, err)
	}

	r.conns[mode] = conn

	return conn, nil
}

// Close closes all cached connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for mode, conn := range r.conns {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Str("mode", string(mode)).Msg("failed to close LDAP connection")
		}

		delete(r.conns, mode)
	}
}
