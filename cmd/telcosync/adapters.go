package main

import (
	"context"
	"time"

	"telcosync/internal/config"
	"telcosync/internal/logging"
	"telcosync/internal/providers"
	"telcosync/internal/providers/retell"
	"telcosync/internal/providers/telnyx"
	"telcosync/internal/providers/zadarma"
	"telcosync/internal/services"
	"telcosync/internal/syncer"
)

// providerKeys lists the credentials each provider cannot run without.
var providerKeys = map[string][]string{
	providers.Zadarma: {config.KeyZadarmaAPIKey, config.KeyZadarmaAPISecret},
	providers.Telnyx:  {config.KeyTelnyxAPIKey},
	providers.Retell:  {config.KeyRetellAPIKey},
}

func (rt *runtime) transport(provider string) *providers.Transport {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return providers.NewTransport(provider,
		providers.WithTimeout(rt.cfg.HTTPTimeout()),
		providers.WithRetryPolicy(providers.RetryPolicy{
			MaxRetries: rt.cfg.Sync.MaxRetries,
			BaseDelay:  seconds(rt.cfg.Sync.BaseBackoffSeconds),
			MaxDelay:   seconds(rt.cfg.Sync.MaxBackoffSeconds),
		}),
		providers.WithLogger(rt.logger),
	)
}

// buildAdapters returns adapters for the requested providers, or for every
// provider with credentials when none is requested. Asking for a provider
// whose credentials are missing is a configuration error.
func buildAdapters(ctx context.Context, rt *runtime, requested []string) ([]providers.Adapter, error) {
	explicit := len(requested) > 0
	names := requested
	if !explicit {
		names = providers.Names()
	}

	var out []providers.Adapter
	for _, name := range names {
		configured, err := rt.providerConfigured(ctx, name)
		if err != nil {
			return nil, err
		}
		if !configured {
			if explicit {
				return nil, rt.creds.Require(name, providerKeys[name]...)
			}
			rt.logger.Info("provider not configured; skipping", logging.String("provider", name))
			continue
		}
		adapter, err := rt.newAdapter(name)
		if err != nil {
			return nil, err
		}
		out = append(out, adapter)
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "sync",
			"no provider credentials found in "+rt.creds.Path+" or the environment", nil)
	}
	return out, nil
}

// providerConfigured reports whether name has credentials. Retell also counts
// as configured when telco.retell_workspaces holds an active workspace.
func (rt *runtime) providerConfigured(ctx context.Context, name string) (bool, error) {
	if rt.creds.Has(providerKeys[name]...) {
		return true, nil
	}
	if name != providers.Retell || rt.store == nil {
		return false, nil
	}
	workspaces, err := rt.store.ActiveRetellWorkspaces(ctx)
	if err != nil {
		logging.WarnWithContext(rt.logger, "retell workspace lookup failed", "retell_workspaces_unavailable",
			logging.Error(err),
			logging.Impact("retell is skipped unless RETELL_API_KEY is set"),
		)
		return false, nil
	}
	return len(workspaces) > 0, nil
}

func (rt *runtime) newAdapter(name string) (providers.Adapter, error) {
	cfg := rt.cfg
	switch name {
	case providers.Zadarma:
		location, err := time.LoadLocation(cfg.Zadarma.Timezone)
		if err != nil {
			return nil, asConfigError("zadarma.timezone", err)
		}
		return zadarma.New(zadarma.Config{
			APIKey:          rt.creds.Get(config.KeyZadarmaAPIKey),
			APISecret:       rt.creds.Get(config.KeyZadarmaAPISecret),
			BaseURL:         cfg.Zadarma.BaseURL,
			MaxWindow:       time.Duration(cfg.Zadarma.MaxWindowDays) * 24 * time.Hour,
			PageLimit:       cfg.Zadarma.PageLimit,
			InitialLookback: time.Duration(cfg.Zadarma.InitialLookbackDays) * 24 * time.Hour,
			Location:        location,
		}, rt.transport(providers.Zadarma)), nil
	case providers.Telnyx:
		return telnyx.New(telnyx.Config{
			APIKey:   rt.creds.Get(config.KeyTelnyxAPIKey),
			BaseURL:  cfg.Telnyx.BaseURL,
			PageSize: cfg.Telnyx.PageSize,
		}, rt.transport(providers.Telnyx)), nil
	case providers.Retell:
		var source retell.WorkspaceSource
		if rt.store != nil {
			source = rt.store
		}
		return retell.New(retell.Config{
			APIKey:    rt.creds.Get(config.KeyRetellAPIKey),
			BaseURL:   cfg.Retell.BaseURL,
			PageLimit: cfg.Retell.PageLimit,
			ToNumbers: cfg.Retell.ToNumbers,
		}, rt.transport(providers.Retell), source), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cli", "sync", "unknown provider "+name, nil)
	}
}

func (rt *runtime) syncOptions() syncer.Options {
	return syncer.Options{
		InitialLimit:    rt.cfg.Sync.InitialLimit,
		Overlap:         rt.cfg.Overlap(),
		ResourceTimeout: rt.cfg.ResourceTimeout(),
		BackfillLimit:   rt.cfg.Sync.BackfillLimit,
		LockDir:         rt.cfg.Paths.LockDir,
	}
}
