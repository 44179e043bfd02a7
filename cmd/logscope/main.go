package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"logscope/internal/config"
	"logscope/internal/ingest"
	"logscope/internal/session"
	"logscope/internal/ui"
	"logscope/internal/util/logx"
	"logscope/internal/version"
)

const settingsPath = "~/.config/logscope/settings.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "logscope:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var settingsFile string
	cmd := &cobra.Command{
		Use:   "logscope [files...]",
		Short: "Interactive viewer for plain-text logs",
		Long: `logscope reads log files and piped input into a searchable buffer,
highlights and classifies lines with rules from a TOML file, hides noise with
include/exclude filters and charts event frequency over time.

Rules are read from --rules, ~/.config/logscope/config.toml or
./.logscope.toml, whichever exists first.`,
		Version:       version.Full("logscope"),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return readSettings(v, settingsFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&settingsFile, "config", "", "settings file (default "+settingsPath+")")
	f.String(config.KeyRules, "", "rule file (TOML)")
	f.Bool(config.KeyStdin, false, "read standard input as a live stream")
	f.Bool(config.KeyFollow, false, "keep reading files as they grow")
	f.Bool(config.KeyFromEnd, false, "with --follow, start at the end of each file")
	f.Int(config.KeyCapacity, 0, "keep at most this many lines (0 keeps all)")
	f.String(config.KeySave, "", "append the raw stdin stream to this file")
	f.Int(config.KeyBuckets, config.DefaultBuckets, "timeline bucket count")
	f.Bool(config.KeyWatchRules, false, "reload the rule file when it changes")
	f.String(config.KeyTheme, string(config.ThemeDark), "colour theme: dark or light")
	f.String(config.KeyTimeLayout, "", "Go time layout of the leading timestamp (default: auto-detect)")
	f.String(config.KeyLogLevel, "info", "application log level: debug, info, warn, error")

	config.SetDefaults(v)
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

// readSettings loads the optional settings file. Only an explicitly named
// file must exist.
func readSettings(v *viper.Viper, explicit string) error {
	path := explicit
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, strings.TrimPrefix(settingsPath, "~/"))
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("settings %s: %w", path, err)
	}
	logx.Debugf("settings loaded from %s", path)
	return nil
}

func run(ctx context.Context, v *viper.Viper, files []string) error {
	logx.SetFromEnv()
	if lv, err := logx.ParseLevel(v.GetString(config.KeyLogLevel)); err == nil {
		logx.SetLevel(lv)
	} else {
		return err
	}

	cfg, err := config.FromViper(v, files)
	if err != nil {
		return err
	}
	if cfg.RulesPath, err = config.ResolveRulesPath(cfg.RulesPath); err != nil {
		return err
	}
	if cfg.WatchRules && cfg.RulesPath == "" {
		return errors.New("--watch-rules needs a rule file")
	}

	sess, err := session.Open(session.Options{
		Capacity:   cfg.Capacity,
		RulesPath:  cfg.RulesPath,
		TimeLayout: cfg.TimeLayout,
		Buckets:    cfg.Buckets,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logx.Infof("starting logscope %s: %s", version.String(), cfg)
	if err := ui.Run(ctx, cfg, sess, buildSources(cfg, os.Stdin)); err != nil {
		logx.Errorf("logscope exited with error: %v", err)
		return err
	}
	return nil
}

// buildSources turns the configured inputs into ingestion sources, files
// first and the live stream last.
func buildSources(cfg *config.Config, stdin *os.File) []ingest.Source {
	var srcs []ingest.Source
	for _, p := range cfg.Files {
		if cfg.Follow {
			srcs = append(srcs, &ingest.FollowSource{Path: p, FromEnd: cfg.FromEnd})
		} else {
			srcs = append(srcs, &ingest.FileSource{Path: p})
		}
	}
	if cfg.UseStdin {
		srcs = append(srcs, &ingest.StreamSource{Reader: stdin, SavePath: cfg.SavePath})
	}
	return srcs
}
