package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	errNoArchive    = errors.New("the archive is disabled")
	errNoPriceTrail = errors.New("no archived prices for this item")
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show.")
	historyCmd.AddCommand(historyItemCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists the latest archived runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if a.archive == nil {
				return errNoArchive
			}
			runs, err := a.archive.Runs(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Id", "Started", "City", "Brand", "Storefronts", "Items", "Workbook"})
			for _, r := range runs {
				t.AppendRow(table.Row{
					r.Id,
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.City,
					r.Brand,
					r.Storefronts,
					r.Items,
					r.Filename,
				})
			}
			t.Render()
			return nil
		})
	},
}

var historyItemCmd = &cobra.Command{
	Use:   "item <page-url> <item-id>",
	Short: "Shows how the price and sales of one menu item changed across runs.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if a.archive == nil {
				return errNoArchive
			}
			points, err := a.archive.ItemHistory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(points) == 0 {
				return errNoPriceTrail
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Run", "Price", "Monthly sold"})
			for _, p := range points {
				sold := "-"
				if p.MonthlySoldCount != nil {
					sold = fmt.Sprint(*p.MonthlySoldCount)
				}
				t.AppendRow(table.Row{p.Time.Format("2006-01-02 15:04:05"), p.Price, sold})
			}
			t.Render()
			return nil
		})
	},
}
