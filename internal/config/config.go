// Package config loads process configuration for the templategen commands.
// Files may be JSON or YAML; defaults fill anything left unset and command
// line flags override the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-spx-templategen/pkg/inference"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig            `json:"server" yaml:"server"`
	Model    ModelConfig             `json:"model" yaml:"model"`
	Decoding inference.DecodeOptions `json:"decoding" yaml:"decoding"`
	Store    StoreConfig             `json:"store" yaml:"store"`
	SPX      SPXConfig               `json:"spx" yaml:"spx"`
	Theme    ThemeConfig             `json:"theme" yaml:"theme"`
	Log      LogConfig               `json:"log" yaml:"log"`
}

// ServerConfig configures the console HTTP server.
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Debug     bool   `json:"debug" yaml:"debug"`
	BodyLimit string `json:"body_limit" yaml:"body_limit"`
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool `json:"secure_cookie" yaml:"secure_cookie"`
}

// ModelConfig selects the inference backend and model.
type ModelConfig struct {
	Backend        string   `json:"backend" yaml:"backend"`
	Endpoint       string   `json:"endpoint" yaml:"endpoint"`
	ID             string   `json:"id" yaml:"id"`
	Task           string   `json:"task" yaml:"task"`
	APIKey         string   `json:"api_key" yaml:"api_key"`
	Timeout        Duration `json:"timeout" yaml:"timeout"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
}

// StoreConfig configures where per-session results are kept.
type StoreConfig struct {
	Driver string      `json:"driver" yaml:"driver"`
	Size   int         `json:"size" yaml:"size"`
	TTL    Duration    `json:"ttl" yaml:"ttl"`
	Redis  RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds go-redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// SPXConfig points at the SPX-GC templates folder.
type SPXConfig struct {
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir"`
	Project      string `json:"project" yaml:"project"`
}

// ThemeConfig selects the console theme.
type ThemeConfig struct {
	Name    string `json:"name" yaml:"name"`
	Variant string `json:"variant" yaml:"variant"`
}

// LogConfig sets the log level (debug, info, warn, error, off).
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8787",
			BodyLimit: "64K",
		},
		Model: ModelConfig{
			Backend:        inference.BackendSample,
			Task:           inference.TaskTextGeneration,
			Timeout:        Duration(5 * time.Minute),
			RequestTimeout: Duration(0),
		},
		Decoding: inference.DefaultDecodeOptions(),
		Store: StoreConfig{
			Driver: StoreMemory,
			Size:   256,
			TTL:    Duration(24 * time.Hour),
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "spx-templategen:",
			},
		},
		SPX: SPXConfig{
			Project: "ai-generated",
		},
		Theme: ThemeConfig{
			Name:    "spx",
			Variant: "dark",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadEnvFile exports the variables of a dotenv file so ${VAR} references in
// the configuration can resolve them. Variables already set in the process
// environment win. A missing file is only an error when required is set.
func LoadEnvFile(path string, required bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

// Parse decodes a JSON or YAML document over the defaults.
func Parse(data []byte, source string) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("config: file %s is empty", source)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = Default()
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			return Config{}, fmt.Errorf("config: parse %s: invalid JSON or YAML: %w", source, yerr)
		}
	}

	cfg.expandEnv()
	cfg.Decoding = cfg.Decoding.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", source, err)
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	c.Model.Endpoint = os.ExpandEnv(c.Model.Endpoint)
	c.Model.APIKey = os.ExpandEnv(c.Model.APIKey)
	c.Store.Redis.Addr = os.ExpandEnv(c.Store.Redis.Addr)
	c.Store.Redis.Password = os.ExpandEnv(c.Store.Redis.Password)
	c.SPX.TemplatesDir = os.ExpandEnv(c.SPX.TemplatesDir)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !knownBackend(c.Model.Backend) {
		errs = append(errs, fmt.Errorf("model.backend %q is not one of %s", c.Model.Backend, strings.Join(inference.Backends(), ", ")))
	}
	if c.Model.Backend == inference.BackendOllama && strings.TrimSpace(c.Model.ID) == "" {
		errs = append(errs, errors.New("model.id is required for the ollama backend"))
	}
	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be %q or %q", c.Store.Driver, StoreMemory, StoreRedis))
	}
	if c.Store.Driver == StoreRedis && strings.TrimSpace(c.Store.Redis.Addr) == "" {
		errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func knownBackend(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, candidate := range inference.Backends() {
		if candidate == name {
			return true
		}
	}
	return name == "hf" || name == "tgi"
}

// InferenceConfig maps the model section onto inference.Config.
func (c Config) InferenceConfig() inference.Config {
	return inference.Config{
		Backend:        c.Model.Backend,
		Endpoint:       c.Model.Endpoint,
		APIKey:         c.Model.APIKey,
		RequestTimeout: c.Model.RequestTimeout.Std(),
	}
}

// ParseLevel maps a level name onto gommon's log levels.
func ParseLevel(level string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG, nil
	case "", "info":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	default:
		return log.INFO, fmt.Errorf("log.level %q is not one of debug, info, warn, error, off", level)
	}
}

// Duration is a time.Duration read from strings such as "90s" or "5m".
// Bare numbers are taken as seconds.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// UnmarshalYAML accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		*d = 0
	case string:
		parsed, err := ParseDuration(v)
		if err != nil {
			return err
		}
		*d = parsed
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("config: invalid duration %v", raw)
	}
	return nil
}

// ParseDuration parses a duration string; bare numbers are seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		return Duration(parsed), nil
	}
	if parsed, err := time.ParseDuration(s + "s"); err == nil {
		return Duration(parsed), nil
	}
	return 0, fmt.Errorf("config: invalid duration %q", s)
}
