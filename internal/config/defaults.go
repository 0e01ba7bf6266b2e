package config

const (
	defaultConfigPath             = "~/.config/telcosync/config.toml"
	defaultCredentialsFile        = "~/.config/telcosync/.credentials"
	defaultLockDir                = "~/.local/state/telcosync/locks"
	defaultLogDir                 = "~/.local/state/telcosync/logs"
	defaultStateDir               = "~/.local/state/telcosync"
	defaultConnectTimeoutSeconds  = 10
	defaultMaxConns               = 4
	defaultInitialLimit           = 1000
	defaultOverlapMinutes         = 10
	defaultHTTPTimeoutSeconds     = 30
	defaultResourceTimeoutSeconds = 240
	defaultMaxRetries             = 6
	defaultBaseBackoffSeconds     = 1
	defaultMaxBackoffSeconds      = 60
	defaultBackfillLimit          = 200
	defaultZadarmaBaseURL         = "https://api.zadarma.com"
	defaultZadarmaMaxWindowDays   = 30
	defaultZadarmaPageLimit       = 1000
	defaultZadarmaLookbackDays    = 365
	defaultZadarmaTimezone        = "UTC"
	defaultTelnyxBaseURL          = "https://api.telnyx.com/v2"
	defaultTelnyxPageSize         = 250
	defaultRetellBaseURL          = "https://api.retellai.com"
	defaultRetellPageLimit        = 1000
	maxRetellPageLimit            = 1000
	defaultClassifierBatchSize    = 500
	defaultMonitorContextFile     = "~/.config/telcosync/system_context.md"
	defaultGitHubAPIURL           = "https://api.github.com"
	defaultMonitorMaxDiffLines    = 400
	defaultMonitorTimeoutSeconds  = 30
	defaultLLMBaseURL             = "https://api.anthropic.com/v1/messages"
	defaultLLMModel               = "claude-sonnet-4-5"
	defaultLLMTimeoutSeconds      = 120
	defaultLLMMaxTokens           = 4096
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// DefaultMonitorPages lists the provider documentation watched out of the box.
func DefaultMonitorPages() []MonitorPage {
	return []MonitorPage{
		{Name: "zadarma-api", URL: "https://zadarma.com/en/support/api/", Selector: "main"},
		{Name: "telnyx-detail-records", URL: "https://developers.telnyx.com/api/reporting/list-detail-records", Selector: "main"},
		{Name: "retell-list-calls", URL: "https://docs.retellai.com/api-references/list-calls", Selector: "main"},
		{Name: "retell-get-call", URL: "https://docs.retellai.com/api-references/get-call", Selector: "main"},
	}
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Database: Database{
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
			MaxConns:              defaultMaxConns,
		},
		Paths: Paths{
			CredentialsFile: defaultCredentialsFile,
			LockDir:         defaultLockDir,
			LogDir:          defaultLogDir,
			StateDir:        defaultStateDir,
		},
		Sync: Sync{
			InitialLimit:           defaultInitialLimit,
			OverlapMinutes:         defaultOverlapMinutes,
			HTTPTimeoutSeconds:     defaultHTTPTimeoutSeconds,
			ResourceTimeoutSeconds: defaultResourceTimeoutSeconds,
			MaxRetries:             defaultMaxRetries,
			BaseBackoffSeconds:     defaultBaseBackoffSeconds,
			MaxBackoffSeconds:      defaultMaxBackoffSeconds,
			BackfillLimit:          defaultBackfillLimit,
		},
		Zadarma: Zadarma{
			BaseURL:             defaultZadarmaBaseURL,
			MaxWindowDays:       defaultZadarmaMaxWindowDays,
			PageLimit:           defaultZadarmaPageLimit,
			InitialLookbackDays: defaultZadarmaLookbackDays,
			Timezone:            defaultZadarmaTimezone,
		},
		Telnyx: Telnyx{
			BaseURL:  defaultTelnyxBaseURL,
			PageSize: defaultTelnyxPageSize,
		},
		Retell: Retell{
			BaseURL:   defaultRetellBaseURL,
			PageLimit: defaultRetellPageLimit,
		},
		Classifier: Classifier{
			BatchSize: defaultClassifierBatchSize,
		},
		Monitor: Monitor{
			ContextFile:           defaultMonitorContextFile,
			GitHubAPIURL:          defaultGitHubAPIURL,
			MaxDiffLines:          defaultMonitorMaxDiffLines,
			RequestTimeoutSeconds: defaultMonitorTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
