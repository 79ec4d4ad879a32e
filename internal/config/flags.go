package config

import (
	"flag"
	"time"
)

// Flags are the command line overrides shared by the commands. Only flags
// set explicitly on the command line replace file values.
type Flags struct {
	fs *flag.FlagSet

	Path         string
	EnvFile      string
	Addr         string
	Backend      string
	Endpoint     string
	ModelID      string
	Timeout      time.Duration
	TemplatesDir string
	LogLevel     string
	Debug        bool
	Store        string
	RedisAddr    string
}

// RegisterFlags declares the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Path, "config", "", "configuration file (JSON or YAML)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file loaded before the configuration")
	fs.StringVar(&f.Addr, "addr", "", "console listen address")
	fs.StringVar(&f.Backend, "backend", "", "inference backend (huggingface, ollama, sample)")
	fs.StringVar(&f.Endpoint, "endpoint", "", "inference endpoint URL")
	fs.StringVar(&f.ModelID, "model", "", "model identifier")
	fs.DurationVar(&f.Timeout, "timeout", 0, "generation deadline")
	fs.StringVar(&f.TemplatesDir, "templates-dir", "", "SPX-GC templates folder used by save")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	fs.BoolVar(&f.Debug, "debug", false, "include error stacks in API responses")
	fs.StringVar(&f.Store, "store", "", "result store driver (memory, redis)")
	fs.StringVar(&f.RedisAddr, "redis-addr", "", "redis address for the redis store")
	return f
}

// Load reads the env file and the configured file, then applies the explicit
// overrides. The default env file is optional.
func (f *Flags) Load() (Config, error) {
	if err := LoadEnvFile(f.EnvFile, f.isSet("env-file")); err != nil {
		return Config{}, err
	}
	cfg, err := Load(f.Path)
	if err != nil {
		return Config{}, err
	}
	f.Apply(&cfg)
	return cfg, cfg.Validate()
}

// Apply copies explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	if f == nil || f.fs == nil || cfg == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "addr":
			cfg.Server.Addr = f.Addr
		case "backend":
			cfg.Model.Backend = f.Backend
		case "endpoint":
			cfg.Model.Endpoint = f.Endpoint
		case "model":
			cfg.Model.ID = f.ModelID
		case "timeout":
			cfg.Model.Timeout = Duration(f.Timeout)
		case "templates-dir":
			cfg.SPX.TemplatesDir = f.TemplatesDir
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "debug":
			cfg.Server.Debug = f.Debug
		case "store":
			cfg.Store.Driver = f.Store
		case "redis-addr":
			cfg.Store.Redis.Addr = f.RedisAddr
		}
	})
}

func (f *Flags) isSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}
