package config

import (
	"github.com/heimrichhannot/contao-ldap-bundle/internal/logger"
)

// Mode names for the two synchronization partitions. Backend users and
// frontend members are synced from independent directory subtrees into
// independent table pairs.
const (
	ModeUser   = "user"
	ModeMember = "member"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Webserver Webserver
	User      *ModeConfig `mapstructure:"user"`
	Member    *ModeConfig `mapstructure:"member"`
}

// Mode returns the configuration for the named mode, or nil if the mode
// is not configured.
func (c *Config) Mode(name string) *ModeConfig {
	switch name {
	case ModeUser:
		return c.User
	case ModeMember:
		return c.Member
	}

	return nil
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	URL          string // base url for the webserver
	ShutDownTime int    // wait time for shutdown
}

// Connection holds the connection parameters for one LDAP server.
type Connection struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Version    int    `mapstructure:"version"`
	Encryption string `mapstructure:"encryption" validate:"omitempty,oneof=none ssl tls"`
	SkipVerify bool   `mapstructure:"skip_verify"` // skip TLS certificate verification (testing only)
	Timeout    int    `mapstructure:"timeout"`     // connection timeout in seconds
}

// ModeConfig holds the full per-mode configuration: connection, bind
// credentials and the person/group search sections.
type ModeConfig struct {
	Connection   Connection `mapstructure:"connection"`
	BindDN       string     `mapstructure:"bind_dn" validate:"required"`
	BindPassword string     `mapstructure:"bind_password"`
	// UsernameAttr is the LDAP attribute holding the local username
	// (the original bundle's person_username_ldap_field).
	UsernameAttr string       `mapstructure:"person_username_ldap_field"`
	Person       PersonConfig `mapstructure:"person"`
	Group        GroupConfig  `mapstructure:"group"`
}

// PersonConfig configures the person search for one mode.
type PersonConfig struct {
	BaseDN string `mapstructure:"base_dn" validate:"required"`
	Filter string `mapstructure:"filter"`
	// AdminGidNumber designates one directory group as administrative.
	// 0 means no group is administrative.
	AdminGidNumber int64          `mapstructure:"admin_gid_number"`
	SkipUids       []string       `mapstructure:"skip_uids"`
	SkipUidNumbers []int64        `mapstructure:"skip_uid_numbers"`
	FieldMapping   []FieldMapping `mapstructure:"field_mapping" validate:"dive"`
	DefaultValues  []DefaultValue `mapstructure:"default_values" validate:"dive"`
}

// GroupConfig configures the group search for one mode.
type GroupConfig struct {
	BaseDN         string         `mapstructure:"base_dn" validate:"required"`
	Filter         string         `mapstructure:"filter"`
	SkipGidNumbers []int64        `mapstructure:"skip_gid_numbers"`
	FieldMapping   []FieldMapping `mapstructure:"field_mapping" validate:"dive"`
	DefaultValues  []DefaultValue `mapstructure:"default_values" validate:"dive"`
}

// FieldMapping maps one directory attribute onto one local column.
type FieldMapping struct {
	LdapField  string `mapstructure:"ldap_field" validate:"required"`
	LocalField string `mapstructure:"local_field" validate:"required"`
}

// DefaultValue assigns a static literal to one local column on every pass,
// independent of directory content.
type DefaultValue struct {
	Field string `mapstructure:"field" validate:"required"`
	Value string `mapstructure:"value" validate:"required"`
}
