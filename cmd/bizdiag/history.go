package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizdiag/internal/types"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent case searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputHuman, outputJSON, outputYAML); err != nil {
				return err
			}
			env, err := root.open()
			if err != nil {
				return err
			}
			defer env.Close()
			items := env.history().List(cmd.Context())
			out := cmd.OutOrStdout()
			if output != outputHuman {
				if items == nil {
					items = []types.SearchHistoryItem{}
				}
				return writeStructured(out, items, output)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "Sin búsquedas recientes.")
				return nil
			}
			for i, it := range items {
				fmt.Fprintf(out, "%d. %s\n", i+1, describeSearch(it))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputHuman, "Output format (human, json, yaml)")
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.open()
			if err != nil {
				return err
			}
			defer env.Close()
			env.history().Clear(cmd.Context())
			printSuccess(cmd.OutOrStdout(), "Historial borrado")
			return nil
		},
	})
	return cmd
}

func describeSearch(it types.SearchHistoryItem) string {
	s := "Todos los casos"
	if it.Query != "" {
		s = fmt.Sprintf("%q", it.Query)
	}
	if it.Tier != nil {
		s += " · " + it.Tier.Label()
	}
	if it.Category != nil {
		s += " · " + it.Category.Short()
	}
	return s
}
