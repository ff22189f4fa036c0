package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wxo-labs/studio/internal/orchestrate"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents on the orchestration service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newAgentListCmd(),
		newAgentGetCmd(),
		newAgentUpdateCmd(),
		newAgentDeleteCmd(),
		newAgentChatCmd(),
	)
	return cmd
}

func newAgentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			agents, err := client.ListAgents(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			for _, a := range agents {
				line := a.ID
				if a.Name != "" {
					line += "\t" + a.Name
				}
				if a.Model != "" {
					line += "\t" + a.Model
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum number of agents to list")
	cmd.Flags().Int("offset", 0, "Pagination offset")
	return cmd
}

func newAgentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one agent as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			a, err := client.GetAgent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(text))
			return nil
		},
	}
}

func newAgentUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an agent's mutable fields",
		Long:  "Update an agent's mutable fields. Only display name, description, instructions, and tags can change after creation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload orchestrate.AgentUpdate
			changed := false
			if cmd.Flags().Changed("display-name") {
				payload.DisplayName, _ = cmd.Flags().GetString("display-name")
				changed = true
			}
			if cmd.Flags().Changed("description") {
				payload.Description, _ = cmd.Flags().GetString("description")
				changed = true
			}
			if cmd.Flags().Changed("instructions") {
				payload.Instructions, _ = cmd.Flags().GetString("instructions")
				changed = true
			}
			if cmd.Flags().Changed("tags") {
				payload.Tags, _ = cmd.Flags().GetStringSlice("tags")
				changed = true
			}
			if !changed {
				return newUsageError("agent update: nothing to change; pass at least one field flag")
			}

			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			if err := client.UpdateAgent(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("display-name", "", "Human-facing display name")
	flags.String("description", "", "Agent description")
	flags.String("instructions", "", "Instruction prompt")
	flags.StringSlice("tags", nil, "Tags to attach")
	return cmd
}

func newAgentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			if err := client.DeleteAgent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newAgentChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message...>",
		Short: "Send one message to an agent and print its reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			agentID, _ := cmd.Flags().GetString("agent")
			if agentID == "" {
				agentID = cfg.DefaultAgentID
			}
			if agentID == "" {
				return newUsageError("agent chat: --agent is required (or set default_agent_id in config)")
			}
			verbose, _ := cmd.Flags().GetBool("verbose")

			orch := orchestrate.NewOrchestrator(client)
			res, err := orch.ChatAgent(cmd.Context(), agentID, strings.Join(args, " "), verbose)
			if err != nil {
				return err
			}
			printRunResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().String("agent", "", "Agent id to chat with")
	return cmd
}
