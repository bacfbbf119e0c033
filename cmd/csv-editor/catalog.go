package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/operator-framework/csv-editor/pkg/catalog"
	"github.com/operator-framework/csv-editor/pkg/version"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "catalog [NAME]",
		Short:     "Print the option catalogs used by the editor",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: catalog.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v interface{} = catalog.All()
			if len(args) == 1 {
				list, ok := catalog.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown catalog %q, expected one of %s", args[0], strings.Join(catalog.Names(), ", "))
				}
				v = list
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the editor version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.String())
		},
	}
}
