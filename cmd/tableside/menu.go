package main

import (
	"fmt"

	"github.com/cuemby/tableside/pkg/catalog"
	"github.com/spf13/cobra"
)

func newMenuCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "List the dishes that can be added",
		Long: `List the dish catalog.

By default the built-in catalog (or catalog_file from the config) is shown.
With --remote the categories and dishes are fetched from the API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, _ := cmd.Flags().GetBool("remote")

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cat := a.catalog
			if remote {
				if cat, err = catalog.Fetch(a.context(cmd), a.client); err != nil {
					return fmt.Errorf("failed to fetch menu: %w", err)
				}
			}

			if a.format == "json" {
				return writeJSON(a.out, cat)
			}
			printCatalog(a.out, a.printer, cat)
			return nil
		},
	}
	cmd.Flags().Bool("remote", false, "fetch the menu from the API")
	return cmd
}
