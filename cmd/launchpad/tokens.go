package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	tokensQuery string
)

// tokensCmd groups the read commands.
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Browse tokens",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens, optionally filtered by name or symbol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		infos, err := a.Catalog.List(cmd.Context(), tokensQuery)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tNAME\tSYMBOL\tPRICE\tMARKET CAP\tHOLDERS\tCREATED\tCREATOR")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%.2f\t%d\t%s\t%s\n",
				info.Address, info.Name, info.Symbol, info.Price, info.MarketCap(),
				info.HolderCount, info.CreatedAt, info.ShortCreator())
		}
		return w.Flush()
	},
}

var tokensShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		info, err := a.Catalog.Get(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

var tokensChartCmd = &cobra.Command{
	Use:   "chart <address>",
	Short: "Print a token's price series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		chart, err := a.Catalog.Chart(cmd.Context(), addr)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source: %s\n", chart.Source)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tPRICE")
		for _, p := range chart.Points {
			fmt.Fprintf(w, "%s\t%.6f\n", p.Date, p.Price)
		}
		return w.Flush()
	},
}

func init() {
	tokensListCmd.Flags().StringVarP(&tokensQuery, "query", "q", "", "Case-insensitive name or symbol filter")
	tokensCmd.AddCommand(tokensListCmd, tokensShowCmd, tokensChartCmd)
}
