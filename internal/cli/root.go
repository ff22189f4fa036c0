package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wxo-labs/studio/internal/config"
	"github.com/wxo-labs/studio/internal/orchestrate"
)

// Execute runs the wxo-studio CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wxo-studio",
		Short:         "Author, validate, test, and publish orchestration tools",
		Long:          "wxo-studio edits OpenAPI tool definitions, validates them against the bound-tool format, tests them locally and remotely, and manages tools and agents on the orchestration service.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	subs := []*cobra.Command{
		newValidateCmd(),
		newImportCmd(),
		newGenerateCmd(),
		newCurlCmd(),
		newToolCmd(),
		newAgentCmd(),
		newConnectionsCmd(),
		newCatalogCmd(),
	}
	for _, sub := range subs {
		cmd.AddCommand(sub)
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)
	for _, sub := range cmd.Commands() {
		sub.SetFlagErrorFunc(flagErr)
		for _, nested := range sub.Commands() {
			nested.SetFlagErrorFunc(flagErr)
		}
	}

	return cmd
}

// loadConfig resolves configuration for commands that talk to the service.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Debug = true
	}
	return cfg, nil
}

var loadConfigFile = config.Load

// newServiceClient builds the remote client from resolved configuration.
func newServiceClient(cmd *cobra.Command) (*orchestrate.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, newUsageError(fmt.Sprintf("%v (set it in the config file or WXO_* environment)", err))
	}
	client, err := orchestrate.NewClient(cfg.BaseURL, orchestrate.StaticToken(cfg.APIKey),
		orchestrate.WithLogger(config.NewLogger(cfg.Debug)))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}
