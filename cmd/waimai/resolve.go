package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"waimai-crawler/services/resolver"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var errNoStorefronts = errors.New("no storefronts found")

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <city> <brand>",
	Short: "Prints the storefronts a brand runs in a city.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			result, err := a.pipeline.Resolve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if result.Empty() {
				return errNoStorefronts
			}
			printStorefronts(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

func printStorefronts(out io.Writer, result resolver.Result) {
	t := newTable(out)
	t.SetTitle(fmt.Sprintf("%s (%s)", result.Brand, result.City.Name))
	t.AppendHeader(table.Row{"#", "Address", "Lat", "Lng", "Geohash", "Monthly sales", "Urls"})
	for i, s := range result.Storefronts {
		t.AppendRow(table.Row{
			i + 1,
			s.DisplayName(),
			s.Lat,
			s.Lng,
			s.GeoHash,
			deref(s.Stats.SaleCount),
			strings.Join(s.Urls, "\n"),
		})
	}
	t.AppendFooter(table.Row{"", "Total", "", "", "", "", len(result.Storefronts)})
	t.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
