package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipgate/internal/clipaccess"
	"go.klb.dev/clipgate/internal/logging"
	"go.klb.dev/clipgate/internal/native"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPGATE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPGATE_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipgate")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipgate/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/clipgate", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	setupLogging(v)
	return nil
}

// addCommonFlags adds the config, logging and clipboard access flags.
func addCommonFlags(cmd *cobra.Command) {
	d := clipaccess.DefaultConfig()
	f := cmd.Flags()
	f.String("config", "", "path to config file (overrides auto-discovery)")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: warn)")
	f.Int("retries", d.Retries, "extra OpenClipboard attempts while another program holds the clipboard")
	f.Duration("retry-interval", d.RetryInterval, "pause between OpenClipboard attempts")
	f.Duration("timeout", d.Timeout, "maximum wait for another clipgate operation in this process")
	f.Uint64("owner", 0, "window handle that owns the clipboard (0: current task)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	format := logging.ParseFormat(v.GetString("log-format"))
	logging.Setup(format, logging.ParseLevel(v.GetString("log-level"), slog.LevelWarn))
}

// accessConfig decodes the retry and timeout settings.
func accessConfig(v *viper.Viper) (clipaccess.Config, error) {
	cfg := clipaccess.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("access config: %w", err)
	}
	return cfg, nil
}

// newArbiter opens the platform clipboard backend and wraps it in an arbiter
// configured from v.
func newArbiter(v *viper.Viper, api native.API) (*clipaccess.Arbiter, error) {
	cfg, err := accessConfig(v)
	if err != nil {
		return nil, err
	}
	owner := native.HWND(v.GetUint64("owner"))
	return clipaccess.New(api,
		clipaccess.WithDefaults(cfg),
		clipaccess.WithOwnerFunc(func() native.HWND { return owner }),
		clipaccess.WithLogger(slog.Default()),
	), nil
}

// openClipboard acquires the clipboard and turns contention into an error
// the user can act on.
func openClipboard(ctx context.Context, arb *clipaccess.Arbiter) (*clipaccess.Token, error) {
	tok, err := arb.AcquireContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := tok.CheckAccess(); err != nil {
		return nil, fmt.Errorf("clipboard busy, try again: %w", err)
	}
	return tok, nil
}

// apiFactory is replaced in tests.
var apiFactory = native.New
