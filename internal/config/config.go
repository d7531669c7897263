// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment variables overriding single settings, e.g. GO_DIR_AUTH_LDAP_URL.
	EnvPrefix = "GO_DIR_AUTH"

	// JSONConfigEnv holds a JSON document merged on top of the main config file.
	JSONConfigEnv = "GO_DIR_AUTH_CONFIG_JSON"

	mainConfigFile = "main.toml"
	redacted       = "******"
)

// ReadConfig reads path/main.toml, applies environment overrides and validates the result.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, mainConfigFile))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	if configAsJSON := os.Getenv(JSONConfigEnv); configAsJSON != "" {
		var err error
		if c, err = decodeAndMergeConfig(c, configAsJSON); err != nil {
			return Config{}, err
		}
	}

	return c, validate(&c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "GoDirAuth")
	v.SetDefault("webserver.shutDownTime", 5)
	v.SetDefault("ldap.timeout", 10*time.Second)
	v.SetDefault("login.usernameProperty", "username")
	v.SetDefault("login.passwordProperty", "password")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.expiryTime", 24*time.Hour)
	v.SetDefault("session.gcInterval", 10*time.Minute)
	v.SetDefault("session.table", "sessions")
	v.SetDefault("session.redis.keyPrefix", "session:")
	v.SetDefault("db.gormEngine", "sqlite")
	v.SetDefault("db.name", ":memory:")
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	if err := json.Unmarshal([]byte(configAsJSON), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config from env "+JSONConfigEnv)
	}

	return c, nil
}

// Redacted returns a copy of c without secrets.
func Redacted(c Config) Config {
	for _, secret := range []*string{
		&c.Webserver.CookieEncryptionKey,
		&c.Webserver.Argon2Salt,
		&c.DB.Password,
		&c.Session.DB.Password,
		&c.Session.Redis.Password,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}

	return c
}

// DumpConfig config as TOML String, secrets redacted.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer

	enc := toml.NewEncoder(&buffer)
	enc.SetIndentTables(true)

	if err := enc.Encode(Redacted(c)); err != nil {
		return "", errors.Wrap(err, "failed to encode config as toml")
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String, secrets redacted.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(Redacted(c)); err != nil {
		return "", errors.Wrap(err, "failed to encode config as json")
	}

	return buffer.String(), nil
}

// validate checks the settings needed to start and applies the remaining defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5
	}

	switch {
	case c.DevMode && c.Dev.Fixture == "":
		return errors.Wrap(ErrDevFixtureMissing, invalidErrMessage)
	case !c.DevMode && c.LDAP.URL == "":
		return errors.Wrap(ErrLDAPURLMissing, invalidErrMessage)
	}

	if c.Login.BasicAuthToken && (c.Webserver.CookieEncryptionKey == "" || c.Webserver.Argon2Salt == "") {
		return errors.Wrap(ErrBasicAuthTokenKeyMissing, invalidErrMessage)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
