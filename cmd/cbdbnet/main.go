// Command cbdbnet serves and queries CBDB person networks.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cbdb-network/cbdbnet/client"
	"github.com/cbdb-network/cbdbnet/internal/config"
)

// Build-time variables set via ldflags.
var (
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3030"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("cbdbnet version %s (commit: %s, built: %s)", config.Version, commit, buildDate)
	}
	return fmt.Sprintf("cbdbnet version %s", config.Version)
}

type configFile struct {
	// Flat format
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	// Profile format
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cbdbnet",
		Short:   "cbdbnet: explore person networks in the China Biographical Database",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Server URL (env: CBDBNET_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API token (env: CBDBNET_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table")

	// Server-side commands read their settings from the environment.
	skipClient := func(cmd *cobra.Command, args []string) {}
	for _, cmd := range []*cobra.Command{newServeCmd(), newMigrateCmd(), newVersionCmd()} {
		cmd.PersistentPreRun = skipClient
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newPersonCmd())
	rootCmd.AddCommand(newNetworkCmd())
	rootCmd.AddCommand(newExploreCmd())
	rootCmd.AddCommand(newRecursiveCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPathCmd())
	rootCmd.AddCommand(newWarmCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL == defaultURL {
		if v := os.Getenv("CBDBNET_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("CBDBNET_API_KEY")
	}

	_, cfg, err := loadConfigFile()
	if err != nil {
		return
	}

	resolvedURL, resolvedKey := cfg.resolve()
	if flagURL == defaultURL && resolvedURL != "" {
		flagURL = resolvedURL
	}
	if flagKey == "" && resolvedKey != "" {
		flagKey = resolvedKey
	}
}

// loadConfigFile reads ~/.cbdbnet/config.yaml.
func loadConfigFile() (string, *configFile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil, err
	}
	cfgPath := filepath.Join(home, ".cbdbnet", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, fmt.Errorf("parsing %s: %w", cfgPath, err)
	}
	return cfgPath, &cfg, nil
}

// resolve picks the active profile's settings, falling back to the flat format.
func (cfg *configFile) resolve() (url, apiKey string) {
	url, apiKey = cfg.URL, cfg.APIKey
	if cfg.Profiles == nil {
		return url, apiKey
	}
	profileName := cfg.ActiveProfile
	if profileName == "" {
		profileName = "default"
	}
	if p, ok := cfg.Profiles[profileName]; ok {
		if p.URL != "" {
			url = p.URL
		}
		if p.APIKey != "" {
			apiKey = p.APIKey
		}
	}
	return url, apiKey
}
