// Package config handles input from etc/main.toml.
package config

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// configJSONEnv allows overriding parts of the file configuration with a
// JSON document, mainly for container deployments.
const configJSONEnv = "CONTAO_LDAP_CONFIG_JSON"

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	if jsonConfigEnv := os.Getenv(configJSONEnv); jsonConfigEnv != "" {
		var err error
		if c, err = decodeAndMergeConfig(c, jsonConfigEnv); err != nil {
			return c, err
		}
	}

	applyDefaults(&c)

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config from env")
	}

	return c, nil
}

// applyDefaults fills the optional settings the same way the original
// bundle's configuration tree did.
func applyDefaults(c *Config) {
	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.DB.GormEngine == "" {
		c.DB.GormEngine = "sqlite"
	}

	if c.DB.PasswordHash == "" {
		c.DB.PasswordHash = "argon2id"
	}

	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "info"
	}

	if c.Log.AppName == "" {
		c.Log.AppName = "contao-ldap-bundle"
	}

	if c.Log.ServiceName == "" {
		c.Log.ServiceName = "ldap-bridge"
	}

	for _, mc := range []*ModeConfig{c.User, c.Member} {
		if mc == nil {
			continue
		}

		if mc.Connection.Host == "" {
			mc.Connection.Host = "localhost"
		}

		if mc.Connection.Port == 0 {
			mc.Connection.Port = 389
		}

		if mc.Connection.Version == 0 {
			mc.Connection.Version = 3
		}

		if mc.Connection.Encryption == "" {
			mc.Connection.Encryption = "none"
		}

		if mc.Connection.Timeout == 0 {
			mc.Connection.Timeout = 10
		}

		if mc.UsernameAttr == "" {
			mc.UsernameAttr = "uid"
		}

		if mc.Person.Filter == "" {
			mc.Person.Filter = "(cn=*)"
		}

		if mc.Group.Filter == "" {
			mc.Group.Filter = "(cn=*)"
		}
	}
}

// validate minimal config settings for the bridge. Struct tags cover the
// per-field constraints; the cross-field checks live here.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.User == nil && c.Member == nil {
		return errors.Wrap(ErrNoModeConfigured, invalidErrMessage)
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
