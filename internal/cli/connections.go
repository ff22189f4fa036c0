package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wxo-labs/studio/internal/security"
)

func newConnectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connections",
		Short: "List connections and their resolved auth schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			conns, err := client.ListConnections(cmd.Context())
			if err != nil {
				return err
			}
			for i := range conns {
				conn := &conns[i]
				decls := security.Resolve(conn)
				for _, d := range decls {
					scheme := d.Type
					if d.Scheme != "" {
						scheme += "/" + d.Scheme
					}
					if d.In != "" {
						scheme += "/" + d.In
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
						conn.ConnectionID, conn.AppID, scheme, d.Name)
				}
			}
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List connector applications available in the service catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newServiceClient(cmd)
			if err != nil {
				return err
			}
			entries, err := client.ListCatalog(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				name := e.DisplayName
				if name == "" {
					name = e.Name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.AppID, name, e.Category)
			}
			return nil
		},
	}
}
