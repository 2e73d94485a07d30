// Package settings loads sairedis configuration from a YAML file and
// SAIREDIS_* environment variables.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/newtron-network/sairedis/pkg/util"
)

// Backends the CLI and server can dispatch to.
const (
	BackendRedis  = "redis"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// EnvPrefix prefixes environment overrides: redis.addr is SAIREDIS_REDIS_ADDR.
const EnvPrefix = "SAIREDIS"

// Settings is the full configuration.
type Settings struct {
	Backend  string           `mapstructure:"backend"`
	Redis    RedisSettings    `mapstructure:"redis"`
	SQL      SQLSettings      `mapstructure:"sql"`
	Log      LogSettings      `mapstructure:"log"`
	Audit    AuditSettings    `mapstructure:"audit"`
	Server   ServerSettings   `mapstructure:"server"`
	Metadata MetadataSettings `mapstructure:"metadata"`

	v *viper.Viper
}

// RedisSettings locates ASIC_DB.
type RedisSettings struct {
	Addr     string      `mapstructure:"addr"`
	DB       int         `mapstructure:"db"`
	Password string      `mapstructure:"password"`
	SSH      SSHSettings `mapstructure:"ssh"`
}

// SSHSettings enables the SSH tunnel when Host is set.
type SSHSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type SQLSettings struct {
	DSN string `mapstructure:"dsn"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// AuditSettings enables the audit trail when Path is set.
type AuditSettings struct {
	Path       string `mapstructure:"path"`
	MaxSize    int64  `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type ServerSettings struct {
	Listen string `mapstructure:"listen"`
}

// MetadataSettings replaces the built-in attribute metadata when Path is set.
type MetadataSettings struct {
	Path string `mapstructure:"path"`
}

// DefaultSettingsPath returns ~/.sairedis/settings.yaml.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sairedis_settings.yaml"
	}
	return filepath.Join(home, ".sairedis", "settings.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("backend", BackendRedis)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 1)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.ssh.host", "")
	v.SetDefault("redis.ssh.port", 22)
	v.SetDefault("redis.ssh.user", "admin")
	v.SetDefault("redis.ssh.password", "")
	v.SetDefault("sql.dsn", "sairedis.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("audit.path", "")
	v.SetDefault("audit.max_size", 10*1024*1024)
	v.SetDefault("audit.max_backups", 5)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("metadata.path", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from path. A missing file yields the defaults
// plus any environment overrides.
func LoadFrom(path string) (*Settings, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Settings, error) {
	s := &Settings{v: v}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// Validate checks that the settings can start the selected backend.
func (s *Settings) Validate() error {
	vb := &util.ValidationBuilder{}

	switch s.Backend {
	case BackendRedis:
		vb.Add(s.Redis.Addr != "", "redis.addr is required for the redis backend")
		vb.Add(s.Redis.DB >= 0 && s.Redis.DB <= 15, fmt.Sprintf("redis.db %d out of range 0-15", s.Redis.DB))
		if s.Redis.SSH.Host != "" {
			vb.Add(s.Redis.SSH.User != "", "redis.ssh.user is required when redis.ssh.host is set")
			vb.Add(s.Redis.SSH.Port > 0 && s.Redis.SSH.Port < 65536, fmt.Sprintf("redis.ssh.port %d out of range", s.Redis.SSH.Port))
		}
	case BackendSQL:
		vb.Add(s.SQL.DSN != "", "sql.dsn is required for the sql backend")
	case BackendMemory:
	default:
		vb.AddErrorf("backend %q: must be one of %s, %s, %s", s.Backend, BackendRedis, BackendSQL, BackendMemory)
	}

	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		vb.AddErrorf("log.level: %v", err)
	}
	if s.Audit.Path != "" {
		vb.Add(s.Audit.MaxSize >= 0, "audit.max_size must not be negative")
		vb.Add(s.Audit.MaxBackups >= 0, "audit.max_backups must not be negative")
	}
	return vb.Build()
}

// Get returns the string form of one setting by dotted key.
func (s *Settings) Get(key string) string {
	return s.v.GetString(key)
}

// Set changes one setting by dotted key. Unknown keys are rejected.
func (s *Settings) Set(key, value string) error {
	if !s.known(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	s.v.Set(key, value)
	updated, err := decode(s.v)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

func (s *Settings) known(key string) bool {
	for _, k := range s.v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// Keys returns every setting key, sorted.
func (s *Settings) Keys() []string {
	keys := s.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes every setting, defaults included, to path as YAML.
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return s.v.WriteConfigAs(path)
}
