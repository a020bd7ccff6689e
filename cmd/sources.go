package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sources",
	Long:  "Print the configured sources in collection order, as YAML, including each source's text field and byte-budget fraction.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg.Sources)
		if err != nil {
			return eris.Wrap(err, "sources: marshal")
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
