package main

import (
	"fmt"
	"waimai-crawler/lib/citycode"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(citiesCmd)
}

var citiesCmd = &cobra.Command{
	Use:   "cities <query>",
	Short: "Lists the rows of the city table whose name contains the query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cities, err := citycode.Load(cfg.Cities)
		if err != nil {
			return err
		}

		rows := cities.Search(args[0])
		if len(rows) == 0 {
			return fmt.Errorf("%w: %s", citycode.ErrCityNotFound, args[0])
		}
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Id", "Name"})
		for _, c := range rows {
			t.AppendRow(table.Row{c.Id, c.Name})
		}
		t.Render()
		return nil
	},
}
