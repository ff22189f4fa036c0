package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wxo-labs/studio/internal/form"
	"github.com/wxo-labs/studio/internal/orchestrate"
	"github.com/wxo-labs/studio/internal/tool"
)

func newToolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Manage tools on the orchestration service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newToolListCmd(),
		newToolGetCmd(),
		newToolCreateCmd(),
		newToolDeleteCmd(),
		newToolTestCmd(),
	)
	return cmd
}

func newToolListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			tools, err := client.ListTools(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			for _, b := range tools {
				line := b.Name
				if b.DisplayName != "" {
					line += "\t" + b.DisplayName
				}
				if b.Binding.OpenAPI != nil {
					line += "\t" + b.Binding.OpenAPI.HTTPMethod + " " + b.Binding.OpenAPI.HTTPPath
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum number of tools to list")
	cmd.Flags().Int("offset", 0, "Pagination offset")
	return cmd
}

func newToolGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one tool record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			b, err := client.GetTool(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := json.MarshalIndent(b, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(text))
			return nil
		},
	}
}

func newToolCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Compile a definition file and create the tool remotely",
		Long:  "Compile a definition file and create the tool remotely. OpenAPI documents are compiled into the bound-tool format first; bound records are posted as-is. Validation errors block the create unless --force is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return newUsageError(fmt.Sprintf("read %q: %v", args[0], err))
			}

			force, _ := cmd.Flags().GetBool("force")
			res := tool.Validate(data)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if !res.OK() {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
				}
				if !force {
					return fmt.Errorf("%d validation error(s); use --force to create anyway", len(res.Errors))
				}
			}

			doc, err := tool.Detect(data)
			if err != nil {
				return err
			}
			bound, err := boundFromDocument(cmd.Flags(), doc)
			if err != nil {
				return err
			}

			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			created, err := client.CreateTool(cmd.Context(), bound)
			if err != nil {
				return err
			}
			id := created.ID
			if id == "" {
				id = created.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", id)

			if artifact, _ := cmd.Flags().GetString("artifact"); artifact != "" {
				data, err := os.ReadFile(artifact)
				if err != nil {
					return newUsageError(fmt.Sprintf("read %q: %v", artifact, err))
				}
				// The record already exists; a failed upload is reported, not fatal.
				if err := client.UploadToolArtifact(cmd.Context(), id, filepath.Base(artifact), data); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: artifact upload failed: %v\n", err)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("name", "", "Tool name (derived from the document title when omitted)")
	flags.String("display-name", "", "Human-facing display name")
	flags.String("description", "", "Tool description")
	flags.String("permission", tool.PermissionReadOnly, "Tool permission (read_only|read_write)")
	flags.String("connection-id", "", "Connection to bind for authentication")
	flags.StringSlice("tags", nil, "Tags to attach")
	flags.String("artifact", "", "ZIP artifact to upload after creation")
	flags.Bool("force", false, "Create despite validation errors")
	return cmd
}

func boundFromDocument(flags *pflag.FlagSet, doc *tool.Document) (*tool.Bound, error) {
	if doc.Kind == tool.KindBound {
		return doc.Bound, nil
	}

	name, _ := flags.GetString("name")
	if name == "" {
		name = doc.OpenAPI.Info.Title
	}
	displayName, _ := flags.GetString("display-name")
	description, _ := flags.GetString("description")
	permission, _ := flags.GetString("permission")
	connectionID, _ := flags.GetString("connection-id")
	tags, _ := flags.GetStringSlice("tags")

	meta := tool.Meta{
		Name:         form.SanitizeName(name),
		DisplayName:  displayName,
		Description:  description,
		Permission:   permission,
		Tags:         tags,
		ConnectionID: connectionID,
	}
	if meta.Name == "" {
		return nil, newUsageError("tool create: --name is required when the document has no title")
	}
	return tool.Compile(meta, doc.OpenAPI)
}

func newToolDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			if err := client.DeleteTool(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newToolTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Invoke a tool remotely and print the result",
		Long:  "Invoke a tool remotely through the orchestration run protocol and print its result. Parameters are passed as key=value pairs; polling stops at the first assistant reply or after the fixed budget.",
		Example: strings.TrimSpace(`  wxo-studio tool test weather_lookup q=Toronto,On
  wxo-studio tool test weather_lookup --verbose`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")

			orch := orchestrate.NewOrchestrator(client)
			res, err := orch.InvokeTool(cmd.Context(), args[0], params, verbose)
			if err != nil {
				return err
			}
			printRunResult(cmd, res)
			return nil
		},
	}
	return cmd
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, newUsageError(fmt.Sprintf("parameter %q is not key=value", pair))
		}
		params[key] = val
	}
	return params, nil
}

func printRunResult(cmd *cobra.Command, res *orchestrate.Result) {
	out := cmd.OutOrStdout()
	switch res.State {
	case orchestrate.StateTimedOut:
		fmt.Fprintf(out, "no reply after %d poll attempts; raw thread follows\n", res.Attempts)
		if data, err := json.MarshalIndent(res.Raw, "", "  "); err == nil {
			fmt.Fprintln(out, string(data))
		}
	default:
		if res.Reasoning != "" {
			fmt.Fprintln(out, res.Reasoning)
			fmt.Fprintln(out)
		}
		switch v := res.Output.(type) {
		case string:
			fmt.Fprintln(out, v)
		default:
			if data, err := json.MarshalIndent(v, "", "  "); err == nil {
				fmt.Fprintln(out, string(data))
			}
		}
	}
}
