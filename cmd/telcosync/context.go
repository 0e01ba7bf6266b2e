package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"telcosync/internal/config"
	"telcosync/internal/logging"
	"telcosync/internal/services"
	"telcosync/internal/warehouse"
)

// maxLogBytes is the size at which the run log is rotated before a command starts.
const maxLogBytes = 20 << 20

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = asConfigError("load", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = asConfigError("directories", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime carries what a command needs once configuration is resolved.
type runtime struct {
	cfg    *config.Config
	creds  *config.Credentials
	logger *slog.Logger
	// store is nil for commands that run without the warehouse.
	store *warehouse.Store
}

// withRuntime loads credentials, opens the run log and, when needStore is
// set, connects to the warehouse before calling fn. Everything opened here is
// released when fn returns.
func (c *commandContext) withRuntime(cmd *cobra.Command, needStore bool, fn func(context.Context, *runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	if _, err := logging.RotateIfLarge(cfg.Paths.LogDir, maxLogBytes, time.Now()); err != nil {
		return asConfigError("rotate log", err)
	}
	logger, closer, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return asConfigError("logging", err)
	}
	defer closer.Close()
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "telcosync-*.log", cfg.Logging.RetentionDays)

	logger = logger.With(logging.String("command", cmd.CommandPath()))
	start := time.Now()

	creds, err := config.LoadCredentials(cfg.Paths.CredentialsFile, nil)
	if err != nil {
		return err
	}
	for _, warning := range creds.Warnings {
		logging.WarnWithContext(logger, warning, "credentials_permissions",
			logging.Hint("chmod 700 the directory holding the credentials file"),
		)
	}

	rt := &runtime{cfg: cfg, creds: creds, logger: logger}
	ctx := cmd.Context()
	if needStore {
		store, err := warehouse.Open(ctx, rt.databaseURL(), warehouse.Options{
			ConnectTimeout: time.Duration(cfg.Database.ConnectTimeoutSeconds) * time.Second,
			MaxConns:       int32(cfg.Database.MaxConns),
		}, logger)
		if err != nil {
			logger.Info("command finished",
				logging.Duration("duration", time.Since(start)),
				logging.Int("exit_code", services.ExitCode(err)),
				logging.Error(err),
			)
			return err
		}
		defer store.Close()
		rt.store = store
	}

	err = fn(ctx, rt)
	attrs := []logging.Attr{
		logging.Duration("duration", time.Since(start)),
		logging.Int("exit_code", services.ExitCode(err)),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logger.Info("command finished", logging.Args(attrs...)...)
	return err
}

// databaseURL prefers the configured DSN, then the credentials file.
func (rt *runtime) databaseURL() string {
	if dsn := strings.TrimSpace(rt.cfg.Database.DSN); dsn != "" {
		return dsn
	}
	return rt.creds.Get(config.KeyDatabaseURL)
}

func asConfigError(op string, err error) error {
	if errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return services.Wrap(services.ErrConfiguration, "config", op, "", err)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
