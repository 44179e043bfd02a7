// Package config resolves runtime settings and loads rule files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Setting keys shared by flags, LOGSCOPE_* environment variables and the
// settings file.
const (
	KeyRules      = "rules"
	KeyStdin      = "stdin"
	KeyFollow     = "follow"
	KeyFromEnd    = "from-end"
	KeyCapacity   = "capacity"
	KeySave       = "save"
	KeyBuckets    = "buckets"
	KeyWatchRules = "watch-rules"
	KeyTheme      = "theme"
	KeyTimeLayout = "time-layout"
	KeyLogLevel   = "log-level"
)

const (
	DefaultBuckets = 60
	EnvPrefix      = "LOGSCOPE"
)

type Config struct {
	Files      []string
	UseStdin   bool
	Follow     bool
	FromEnd    bool // followed files skip their existing content
	Capacity   int // 0 keeps every line
	SavePath   string
	Buckets    int
	RulesPath  string
	WatchRules bool
	Theme      Theme
	TimeLayout string
	LogLevel   string

	// Internal
	IsPipedStdin bool
}

// SetDefaults registers defaults for every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCapacity, 0)
	v.SetDefault(KeyBuckets, DefaultBuckets)
	v.SetDefault(KeyTheme, string(ThemeDark))
	v.SetDefault(KeyLogLevel, "info")
}

// FromViper builds a Config from bound settings plus the positional file
// arguments.
func FromViper(v *viper.Viper, files []string) (*Config, error) {
	cfg := &Config{
		Files:        append([]string(nil), files...),
		UseStdin:     v.GetBool(KeyStdin),
		Follow:       v.GetBool(KeyFollow),
		FromEnd:      v.GetBool(KeyFromEnd),
		Capacity:     v.GetInt(KeyCapacity),
		SavePath:     strings.TrimSpace(v.GetString(KeySave)),
		Buckets:      v.GetInt(KeyBuckets),
		RulesPath:    strings.TrimSpace(v.GetString(KeyRules)),
		WatchRules:   v.GetBool(KeyWatchRules),
		Theme:        Theme(strings.ToLower(strings.TrimSpace(v.GetString(KeyTheme)))),
		TimeLayout:   v.GetString(KeyTimeLayout),
		LogLevel:     v.GetString(KeyLogLevel),
		IsPipedStdin: pipedStdin(),
	}
	if cfg.IsPipedStdin && len(cfg.Files) == 0 {
		cfg.UseStdin = true
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0, got %d", c.Capacity)
	}
	if c.Buckets < 1 {
		return fmt.Errorf("buckets must be >= 1, got %d", c.Buckets)
	}
	switch c.Theme {
	case ThemeDark, ThemeLight:
	case "":
		c.Theme = ThemeDark
	default:
		return fmt.Errorf("unknown theme %q (want dark or light)", c.Theme)
	}
	if c.FromEnd && !c.Follow {
		return errors.New("--from-end only applies with --follow")
	}
	if c.SavePath != "" && !c.UseStdin {
		return errors.New("--save mirrors the live stream and needs --stdin or piped input")
	}
	if !c.UseStdin && len(c.Files) == 0 {
		return errors.New("nothing to read: pass log files or pipe input on stdin")
	}
	return nil
}

func pipedStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

func (c *Config) String() string {
	return fmt.Sprintf("files=%v stdin=%v follow=%v capacity=%d save=%q rules=%q watch=%v theme=%s",
		c.Files, c.UseStdin, c.Follow, c.Capacity, c.SavePath, c.RulesPath, c.WatchRules, c.Theme)
}
