package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"logscope/internal/filter"
	"logscope/internal/rules"
)

const (
	userRulesPath  = "~/.config/logscope/config.toml"
	localRulesPath = ".logscope.toml"
)

type styleEntry struct {
	Fg   string `toml:"fg"`
	Bg   string `toml:"bg"`
	Bold bool   `toml:"bold"`
}

func (s *styleEntry) desc() *rules.StyleDesc {
	if s == nil {
		return nil
	}
	return &rules.StyleDesc{Fg: s.Fg, Bg: s.Bg, Bold: s.Bold}
}

type ruleFile struct {
	Highlights []struct {
		Pattern       string      `toml:"pattern"`
		Regex         bool        `toml:"regex"`
		CaseSensitive bool        `toml:"case_sensitive"`
		Style         *styleEntry `toml:"style"`
	} `toml:"highlights"`
	Events []struct {
		Name          string      `toml:"name"`
		Pattern       string      `toml:"pattern"`
		Regex         bool        `toml:"regex"`
		CaseSensitive bool        `toml:"case_sensitive"`
		Critical      bool        `toml:"critical"`
		Style         *styleEntry `toml:"style"`
	} `toml:"events"`
	Filters []struct {
		Pattern       string `toml:"pattern"`
		Regex         bool   `toml:"regex"`
		CaseSensitive bool   `toml:"case_sensitive"`
		Mode          string `toml:"mode"`
		Enabled       *bool  `toml:"enabled"`
		Expr          string `toml:"expr"`
	} `toml:"filters"`
}

// ParseRules decodes a TOML rule file. Filters are enabled unless the file
// says otherwise.
func ParseRules(data []byte) (rules.Descriptions, error) {
	var raw ruleFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return rules.Descriptions{}, fmt.Errorf("parse rules: %w", err)
	}
	var d rules.Descriptions
	for _, h := range raw.Highlights {
		d.Highlights = append(d.Highlights, rules.HighlightDesc{
			Pattern: h.Pattern, Regex: h.Regex, CaseSensitive: h.CaseSensitive, Style: h.Style.desc(),
		})
	}
	for _, e := range raw.Events {
		d.Events = append(d.Events, rules.EventDesc{
			Name: e.Name, Pattern: e.Pattern, Regex: e.Regex, CaseSensitive: e.CaseSensitive,
			Critical: e.Critical, Style: e.Style.desc(),
		})
	}
	for i, f := range raw.Filters {
		mode, err := filter.ParseMode(f.Mode)
		if err != nil {
			return rules.Descriptions{}, fmt.Errorf("parse rules: filters[%d]: %w", i, err)
		}
		enabled := true
		if f.Enabled != nil {
			enabled = *f.Enabled
		}
		d.Filters = append(d.Filters, rules.FilterDesc{
			Pattern: f.Pattern, Regex: f.Regex, CaseSensitive: f.CaseSensitive,
			Mode: mode, Enabled: enabled, Expr: f.Expr,
		})
	}
	return d, nil
}

// LoadRules reads the rule file at path. A missing file (or an empty path)
// yields no rules.
func LoadRules(path string) (rules.Descriptions, error) {
	if strings.TrimSpace(path) == "" {
		return rules.Descriptions{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules.Descriptions{}, nil
		}
		return rules.Descriptions{}, fmt.Errorf("read rules: %w", err)
	}
	d, err := ParseRules(data)
	if err != nil {
		return rules.Descriptions{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ResolveRulesPath returns explicit when set, otherwise the first existing
// file of ~/.config/logscope/config.toml and ./.logscope.toml. It returns ""
// when there is none.
func ResolveRulesPath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return expandPath(explicit)
	}
	for _, candidate := range []string{userRulesPath, localRulesPath} {
		p, err := expandPath(candidate)
		if err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
