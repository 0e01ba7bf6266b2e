package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"telcosync/internal/config"
	"telcosync/internal/providers"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return asConfigError("init", fmt.Errorf("determine default config path: %w", err))
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return asConfigError("init", fmt.Errorf("resolve config path: %w", err))
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return asConfigError("init", fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target))
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Put provider keys in the credentials file (chmod 600) or export them before running telcosync.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and report which integrations have credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return asConfigError("validate", err)
			}
			creds, err := config.LoadCredentials(cfg.Paths.CredentialsFile, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Credentials file: %s\n", creds.Path)
			for _, warning := range creds.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", warning)
			}

			rows := make([][]string, 0, len(providers.Names())+3)
			for _, name := range providers.Names() {
				rows = append(rows, credentialRow(creds, name, "", providerKeys[name]...))
			}
			rows = append(rows,
				credentialRow(creds, "database", cfg.Database.DSN, config.KeyDatabaseURL),
				credentialRow(creds, "llm", cfg.LLM.APIKey, config.KeyAnthropicAPIKey),
				credentialRow(creds, "github", "", config.KeyGitHubToken),
			)
			writeRows(cmd, newListing("Integration", "Configured", "Missing"), rows)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// credentialRow reports whether name has every key. A non-empty override
// (a value already set in the config file) satisfies the keys on its own.
func credentialRow(creds *config.Credentials, name, override string, keys ...string) []string {
	if override != "" {
		return []string{name, "yes", ""}
	}
	var missing []string
	for _, key := range keys {
		if creds.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return []string{name, yesNo(len(missing) == 0), strings.Join(missing, ", ")}
}
