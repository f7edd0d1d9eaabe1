// Package config loads, validates and persists the client configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/floegence/safechat/internal/log"
	"github.com/floegence/safechat/internal/pathutil"
	"github.com/floegence/safechat/internal/securefile"
)

const (
	// FileName is the configuration file kept in the user's home directory.
	FileName = ".safechat"

	defaultLogLevel = "NOTICE"
	defaultLogFile  = "safechat.log"
)

var (
	ErrNameRequired     = errors.New("name required")
	ErrServerRequired   = errors.New("server required")
	ErrInvalidPort      = errors.New("invalid port number")
	ErrFilePathRequired = errors.New("file transfer path required")
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file. If omitted, safechat.log in the
	// system temporary directory is used; stdout carries the chat.
	File string

	// Level specifies the log level.
	Level string
}

// LogFile returns the configured log file or the default one.
func (lCfg *Logging) LogFile() string {
	if lCfg.File == "" {
		return filepath.Join(os.TempDir(), defaultLogFile)
	}
	return lCfg.File
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch {
	case lvl == "":
		lCfg.Level = defaultLogLevel
	case log.ValidLevel(lvl):
		lCfg.Level = lvl
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	if !lCfg.Disable && lCfg.File != "" && !filepath.IsAbs(lCfg.File) {
		return errors.New("config: Logging: File must be an absolute path")
	}
	return nil
}

// Config is the top level client configuration.
type Config struct {
	// LocalName is the display name sent to the relay.
	LocalName string

	// Server is the relay's host name, IP address, or ws:// / wss:// URL.
	Server string

	// Port is the relay's port.
	Port int

	// FilePath is the directory accepted files are written to.
	FilePath string

	Logging *Logging
}

// Overrides are command line values that take precedence over the file.
// Zero values leave the file's setting alone.
type Overrides struct {
	LocalName string
	Server    string
	Port      int
	FilePath  string
}

// ApplyOverrides replaces every setting o carries.
func (cfg *Config) ApplyOverrides(o Overrides) {
	if o.LocalName != "" {
		cfg.LocalName = o.LocalName
	}
	if o.Server != "" {
		cfg.Server = o.Server
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.FilePath != "" {
		cfg.FilePath = o.FilePath
	}
}

// FixupAndValidate applies defaults, normalises the download path and
// returns nil iff the configuration is usable.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	cfg.LocalName = strings.TrimSpace(cfg.LocalName)
	cfg.Server = strings.TrimSpace(cfg.Server)
	if cfg.LocalName == "" {
		return ErrNameRequired
	}
	if cfg.Server == "" {
		return ErrServerRequired
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	cfg.FilePath = pathutil.Trim(cfg.FilePath)
	if cfg.FilePath == "" {
		return ErrFilePathRequired
	}
	if !strings.HasSuffix(cfg.FilePath, string(filepath.Separator)) {
		cfg.FilePath += string(filepath.Separator)
	}
	return nil
}

// InitLogBackend opens the log backend the configuration names.
func (cfg *Config) InitLogBackend() (*log.Backend, error) {
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if err := cfg.Logging.validate(); err != nil {
		return nil, err
	}
	return log.New(cfg.Logging.LogFile(), cfg.Logging.Level, cfg.Logging.Disable)
}

// Save writes the configuration to f with owner-only permissions.
func (cfg *Config) Save(f string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := securefile.WriteFileAtomic(f, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("can't write config file: %w", err)
	}
	return nil
}

// DefaultPath returns $HOME/.safechat.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FileName), nil
}

// Load parses the provided buffer b as a config file body and returns the
// Config. Validation is left to FixupAndValidate so that command line
// overrides can complete a partial file.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	return cfg, nil
}

// LoadFile loads and parses the provided file. A missing file yields an
// empty Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if errors.Is(err, fs.ErrNotExist) {
		return new(Config), nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return Load(b)
}
