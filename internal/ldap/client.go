package ldap

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/heimrichhannot/contao-ldap-bundle/internal/config"
)

// Client is the directory capability the engine depends on. *goldap.Conn
// satisfies it; tests substitute a fake.
type Client interface {
	Bind(username, password string) error
	Search(req *goldap.SearchRequest) (*goldap.SearchResult, error)
	Close() error
}

// Dial establishes an unauthenticated connection to the directory server
// described by the connection config. Encryption "ssl" dials ldaps://,
// "tls" upgrades via StartTLS, "none" stays plaintext.
func Dial(cfg *config.Connection) (Client, error) {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var ldapURL string
	if cfg.Encryption == "ssl" {
		ldapURL = "ldaps://" + hostPort
	} else {
		ldapURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if cfg.Encryption == "ssl" || cfg.Encryption == "tls" {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         cfg.Host,
		}
	}

	conn, err := goldap.DialURL(ldapURL, goldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if cfg.Encryption == "tls" {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if cfg.Timeout > 0 {
		conn.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	return conn, nil
}
