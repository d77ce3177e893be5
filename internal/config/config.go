package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
// Nested keys use underscores, e.g. jwt.secret -> MIS_JWT_SECRET.
const EnvPrefix = "MIS"

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). postgres:// URLs select PostgreSQL,
	// anything else is treated as a SQLite path or URI.
	DatabaseURL string `mapstructure:"database_url" validate:"required"`

	// Server bind address (host:port)
	ServerAddr string `mapstructure:"server_addr" validate:"required"`

	// Maximum database connection pool size (PostgreSQL only)
	MaxDBConnections int `mapstructure:"max_db_connections" validate:"gte=1"`

	// Number of connectivity attempts before giving up on the database
	DBConnectRetries uint `mapstructure:"db_connect_retries" validate:"gte=1"`

	// Enable debug logging
	Debug bool `mapstructure:"debug"`

	// Log output format: text or json
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	// Browser origin allowed by CORS
	FrontendOrigin string `mapstructure:"frontend_origin" validate:"required"`

	JWT       JWTConfig       `mapstructure:"jwt"`
	Accounts  AccountsConfig  `mapstructure:"accounts"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// JWTConfig controls bearer token issuance.
type JWTConfig struct {
	// HMAC signing secret; at least 32 bytes.
	Secret string        `mapstructure:"secret" validate:"required,min=32"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Issuer string        `mapstructure:"issuer" validate:"required"`

	// Size of the validated-claims cache; 0 disables it.
	CacheSize int `mapstructure:"cache_size" validate:"gte=0"`
}

// AccountsConfig holds account provisioning defaults.
type AccountsConfig struct {
	// Password assigned when an administrator creates an account without one.
	// Such accounts are flagged to change it on first login.
	DefaultPassword string `mapstructure:"default_password" validate:"required,min=8"`
}

// BootstrapConfig describes the SuperAdmin account seeded by `misapi bootstrap`.
type BootstrapConfig struct {
	Email     string `mapstructure:"email" validate:"required,email"`
	Password  string `mapstructure:"password" validate:"required,min=8"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
}

// SetDefaults registers fallback values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":3000")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("db_connect_retries", 5)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("frontend_origin", "http://localhost:5173")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("jwt.issuer", "school-mis-api")
	v.SetDefault("jwt.cache_size", 1024)
	v.SetDefault("accounts.default_password", "new.user.pass")
	v.SetDefault("bootstrap.email", "admin@super.com")
	v.SetDefault("bootstrap.password", "super.admin.pass")
	v.SetDefault("bootstrap.first_name", "Super")
	v.SetDefault("bootstrap.last_name", "Admin")
}

// Load reads configuration from the global viper instance: config file (if one
// was read by the caller), MIS_ prefixed environment variables, then defaults.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a Config from v and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	// Explicit Get calls: AutomaticEnv is only consulted on Get, so Unmarshal
	// alone misses nested keys that exist only in the environment.
	cfg := &Config{
		DatabaseURL:      v.GetString("database_url"),
		ServerAddr:       v.GetString("server_addr"),
		MaxDBConnections: v.GetInt("max_db_connections"),
		DBConnectRetries: v.GetUint("db_connect_retries"),
		Debug:            v.GetBool("debug"),
		LogFormat:        strings.ToLower(v.GetString("log_format")),
		FrontendOrigin:   v.GetString("frontend_origin"),
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			TTL:       v.GetDuration("jwt.ttl"),
			Issuer:    v.GetString("jwt.issuer"),
			CacheSize: v.GetInt("jwt.cache_size"),
		},
		Accounts: AccountsConfig{
			DefaultPassword: v.GetString("accounts.default_password"),
		},
		Bootstrap: BootstrapConfig{
			Email:     v.GetString("bootstrap.email"),
			Password:  v.GetString("bootstrap.password"),
			FirstName: v.GetString("bootstrap.first_name"),
			LastName:  v.GetString("bootstrap.last_name"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report config keys instead of Go field names.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return val
}

// Validate checks the configuration and returns a readable error naming the
// offending keys.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.jwt.secret"; drop the type name.
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", key)
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", key, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", key, fe.Tag())
	}
}
