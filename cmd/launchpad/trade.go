package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pumpcore/internal/estimate"
	"pumpcore/internal/trading"
)

var estimatePrior float64

var buyCmd = &cobra.Command{
	Use:   "buy <address> <amount>",
	Short: "Buy a token, paying amount in native units",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, trading.SideBuy, args)
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell <address> <amount>",
	Short: "Sell amount tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(cmd, trading.SideSell, args)
	},
}

func runTrade(cmd *cobra.Command, side trading.Side, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	a, closeApp, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp()

	form := trading.NewForm(a.Conn, side, addr, a.Logger)
	form.Amount = args[1]
	hash, err := form.Submit(cmd.Context())
	if err != nil {
		if form.Error != "" {
			return fmt.Errorf("%s: %w", form.Error, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s submitted: %s\n", side, hash.Hex())
	return nil
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <address> <buy|sell> <amount>",
	Short: "Show the display-only price estimate for a trade size",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		side, err := trading.ParseSide(args[1])
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

		quote := estimate.NewQuote(estimatePrior, estimatePrior)
		var value float64
		var applied bool
		if side == trading.SideSell {
			applied = quote.UpdateSell(info.Price, args[2])
			value = quote.Sell()
		} else {
			applied = quote.UpdateBuy(info.Price, args[2])
			value = quote.Buy()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "price:    %.6f\n", info.Price)
		fmt.Fprintf(out, "estimate: %.6f\n", value)
		if !applied {
			fmt.Fprintln(out, "amount did not parse; showing prior estimate")
		}
		return nil
	},
}

func init() {
	estimateCmd.Flags().Float64Var(&estimatePrior, "prior", 0, "Estimate to keep when amount does not parse")
}
