package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizdiag/internal/export"
	"bizdiag/internal/repository/cases"
	"bizdiag/internal/types"
)

type listOptions struct {
	query     string
	tier      int
	category  string
	sortBy    string
	ascending bool
	page      int
	perPage   int
	record    bool
	output    string
}

func newCasesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Browse and manage saved cases",
	}
	cmd.AddCommand(newCasesListCmd(root), newCasesShowCmd(root), newCasesDeleteCmd(root))
	return cmd
}

func newCasesListCmd(root *rootOptions) *cobra.Command {
	o := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved cases with filters, sorting and paging",
		Long: `Lists saved cases, most recent first.

Examples:
  # Cases mentioning "envíos" that reduce costs
  bizdiag cases list --query envíos --tier 2

  # Cases with a technology solution, ordered by tier, as YAML
  bizdiag cases list --category tecnología --sort tier -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCasesList(cmd, root, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.query, "query", "q", "", "Text to look for in the symptom or root cause")
	f.IntVar(&o.tier, "tier", 0, "Only cases of this tier (1-4)")
	f.StringVar(&o.category, "category", "", "Only cases with a solution in this category (proceso, organización, tecnología)")
	f.StringVar(&o.sortBy, "sort", "id", "Sort key (id, tier)")
	f.BoolVar(&o.ascending, "asc", false, "Oldest first when sorting by id")
	f.IntVar(&o.page, "page", 1, "Page number")
	f.IntVar(&o.perPage, "per-page", cases.DefaultPerPage, "Cases per page")
	f.BoolVar(&o.record, "record", false, "Remember this search in the history")
	f.StringVarP(&o.output, "output", "o", outputHuman, "Output format (human, json, yaml)")
	return cmd
}

func (o *listOptions) filter() (cases.Filter, error) {
	f := cases.Filter{Text: o.query}
	if o.tier != 0 {
		t := types.Tier(o.tier)
		if !t.Valid() {
			return f, fmt.Errorf("tier must be between 1 and 4, got %d", o.tier)
		}
		f.Tier = &t
	}
	if strings.TrimSpace(o.category) != "" {
		c, err := types.ParseSolutionCategory(o.category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

func (o *listOptions) sort() (cases.Sort, error) {
	switch strings.ToLower(strings.TrimSpace(o.sortBy)) {
	case "", "id", "date":
		return cases.Sort{Key: cases.SortByID, Desc: !o.ascending}, nil
	case "tier":
		return cases.TierSort, nil
	}
	return cases.Sort{}, fmt.Errorf("unknown sort %q (want id or tier)", o.sortBy)
}

func runCasesList(cmd *cobra.Command, root *rootOptions, o *listOptions) error {
	if err := checkOutput(o.output, outputHuman, outputJSON, outputYAML); err != nil {
		return err
	}
	f, err := o.filter()
	if err != nil {
		return err
	}
	s, err := o.sort()
	if err != nil {
		return err
	}
	env, err := root.open()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	page := cases.Paginate(cases.Query(env.repo().List(ctx), f, s), o.page, o.perPage)
	if o.record {
		env.history().Record(ctx, f.HistoryItem())
	}

	out := cmd.OutOrStdout()
	if o.output != outputHuman {
		if page.Items == nil {
			page.Items = []types.Case{}
		}
		return writeStructured(out, page.Items, o.output)
	}
	printCaseList(out, page)
	return nil
}

func printCaseList(w io.Writer, page cases.PageResult) {
	if page.Total == 0 {
		fmt.Fprintln(w, "No se encontraron casos.")
		return
	}
	cyan := color.New(color.FgCyan, color.Bold)
	for _, c := range page.Items {
		cyan.Fprintf(w, "%s", c.ID)
		fmt.Fprintf(w, "  %s  %s\n", c.Timestamp, tierColor(c.Tier).Sprint(c.Tier.Label()))
		fmt.Fprintf(w, "   Síntoma: %s\n", c.Symptom)
		fmt.Fprintf(w, "   Causa raíz: %s\n", c.RootCause)
		fmt.Fprintf(w, "   ROI: %s %s\n\n", export.FormatValue(c.ROI.Value), c.ROI.Metric)
	}
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Página %d de %d (%d casos)", page.Page, page.TotalPages, page.Total))
}

func tierColor(t types.Tier) *color.Color {
	switch t {
	case types.TierEfficacy:
		return color.New(color.FgYellow)
	case types.TierCostReduction:
		return color.New(color.FgGreen)
	case types.TierRevenue:
		return color.New(color.FgBlue)
	case types.TierDifferentiate:
		return color.New(color.FgMagenta)
	}
	return color.New(color.FgWhite)
}

func newCasesShowCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one saved case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputHuman, outputJSON, outputYAML, outputMarkdown); err != nil {
				return err
			}
			env, err := root.open()
			if err != nil {
				return err
			}
			defer env.Close()
			c, ok := env.repo().Get(cmd.Context(), strings.TrimSpace(args[0]))
			if !ok {
				return fmt.Errorf("case %q: %w", args[0], cases.ErrNotFound)
			}
			out := cmd.OutOrStdout()
			switch output {
			case outputHuman:
				return renderMarkdown(out, export.CaseMarkdown(c))
			case outputMarkdown:
				_, err = io.WriteString(out, export.CaseMarkdown(c))
				return err
			}
			return writeStructured(out, c, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputHuman, "Output format (human, json, yaml, md)")
	return cmd
}

func newCasesDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.open()
			if err != nil {
				return err
			}
			defer env.Close()
			id := strings.TrimSpace(args[0])
			if err := env.repo().Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("case %q: %w", id, err)
			}
			printSuccess(cmd.OutOrStdout(), "Caso eliminado: "+id)
			return nil
		},
	}
}
