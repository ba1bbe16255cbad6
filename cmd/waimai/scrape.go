package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"waimai-crawler/services/export"
	"waimai-crawler/services/resolver"

	"github.com/spf13/cobra"
)

var scrapeIds []string

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeIds, "ids", nil, "Scrape these storefront ids instead of resolving the brand.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <city> <brand>",
	Short: "Resolves the storefronts of a brand, scrapes their menus and writes a workbook and a report.",
	Long: "Resolves the storefronts of a brand, scrapes their menus and writes a workbook and a report.\n" +
		"With --ids only the brand is required and resolution is skipped.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(scrapeIds) > 0 {
			return cobra.RangeArgs(1, 2)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			var result resolver.Result
			var err error
			if len(scrapeIds) > 0 {
				result, err = a.pipeline.RunStorefronts(cmd.Context(), args[len(args)-1], scrapeIds)
			} else {
				result, err = a.pipeline.Run(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			if result.Empty() {
				return errNoStorefronts
			}
			a.record(cmd.Context(), result)

			path, err := export.SaveWorkbook(a.cfg.OutputDir, result)
			if err != nil {
				return fmt.Errorf("save workbook: %w", err)
			}
			reportPath := strings.TrimSuffix(path, ".xlsx") + ".md"
			f, err := os.Create(reportPath)
			if err != nil {
				return err
			}
			defer f.Close()
			err = export.WriteReport(f, result)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			slog.InfoContext(cmd.Context(), "exported", "workbook", path, "report", reportPath)
			printStorefronts(cmd.OutOrStdout(), result)
			return nil
		})
	},
}
