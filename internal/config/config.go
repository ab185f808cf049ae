// Package config loads layered configuration: built-in defaults, an optional
// YAML file, an optional .env file, RECALL_* environment variables and
// command-line flags, later layers overriding earlier ones.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read. Nested keys are
// separated by a double underscore: RECALL_AUTH__JWT_SECRET.
const EnvPrefix = "RECALL_"

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverJSONFile = "jsonfile"
)

const (
	AuthStrict     = "strict"
	AuthPermissive = "permissive"
)

// Flag names read by Load besides the configuration keys themselves.
const (
	FlagConfig  = "config"
	FlagEnvFile = "env-file"
)

//go:embed defaults.yaml
var defaults []byte

type Config struct {
	Env     string        `koanf:"env" validate:"oneof=local dev prod"`
	Log     LogConfig     `koanf:"log"`
	HTTP    HTTPConfig    `koanf:"http"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json both"`
}

type HTTPConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite jsonfile"`
	Path   string `koanf:"path" validate:"required_if=Driver sqlite"`
	Dir    string `koanf:"dir" validate:"required_if=Driver jsonfile"`
}

type AuthConfig struct {
	Mode           string        `koanf:"mode" validate:"oneof=strict permissive"`
	AnonymousUser  string        `koanf:"anonymous_user" validate:"required_if=Mode permissive"`
	JWTSecret      string        `koanf:"jwt_secret"`
	PrivateKeyFile string        `koanf:"private_key_file"`
	PublicKeyFile  string        `koanf:"public_key_file" validate:"required_with=PrivateKeyFile"`
	TokenLifetime  time.Duration `koanf:"token_lifetime" validate:"gt=0"`
	CookieName     string        `koanf:"cookie_name" validate:"required,excludesall=;=0x2C"`
	CookiePath     string        `koanf:"cookie_path" validate:"required,startswith=/"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	BcryptCost     int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`
	// CredentialsFile, when set, replaces the credentials table by a watched JSON file.
	CredentialsFile string  `koanf:"credentials_file"`
	LoginRate       float64 `koanf:"login_rate" validate:"gte=0"`
	LoginBurst      int     `koanf:"login_burst" validate:"min=1"`
}

// UsesRSA reports whether tokens are signed with an RSA key pair rather than a shared secret.
func (a AuthConfig) UsesRSA() bool {
	return a.PublicKeyFile != ""
}

// RequireAuth reports whether anonymous callers are rejected.
func (a AuthConfig) RequireAuth() bool {
	return a.Mode == AuthStrict
}

// MinSecretLength is the shortest accepted HS256 secret.
const MinSecretLength = 32

// RegisterFlags adds the command-line overrides to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to a YAML configuration file")
	fs.String(FlagEnvFile, ".env", "path to a .env file; ignored when missing")
	fs.String("env", EnvProd, "environment: local, dev or prod")
	fs.String("log.level", "info", "log level: debug, info, warn or error")
	fs.String("log.format", "text", "log format: text, json or both")
	fs.String("http.addr", ":4000", "HTTP listen address")
	fs.String("storage.driver", DriverSQLite, "storage driver: sqlite or jsonfile")
	fs.String("storage.path", "recall.db", "SQLite database file")
	fs.String("storage.dir", "data", "directory of the JSON files")
	fs.String("auth.mode", AuthStrict, "strict rejects anonymous callers, permissive admits them")
}

// Load builds the configuration. flags may be nil; otherwise it must have
// been set up with RegisterFlags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(bytesProvider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := flagString(flags, FlagConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envFile := ".env"
	if flags != nil && flags.Lookup(FlagEnvFile) != nil {
		envFile = flagString(flags, FlagEnvFile)
	}
	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RECALL_AUTH__JWT_SECRET to auth.jwt_secret.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagString(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	v, _ := flags.GetString(name)
	return v
}

// Validate checks field constraints and the token key setup.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if !c.Auth.UsesRSA() && len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least %d bytes unless auth.public_key_file is set", MinSecretLength)
	}
	return nil
}

// bytesProvider feeds an in-memory document to a koanf parser.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read")
}
