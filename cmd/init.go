package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	Long:  "Write the current effective configuration (defaults plus any overrides already in scope) to config.yaml in the working directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := "config.yaml"
		if _, err := os.Stat(path); err == nil && !force {
			return eris.Errorf("init: %s already exists (use --force to overwrite)", path)
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "init: marshal config")
		}

		if err := os.WriteFile(path, out, 0o644); err != nil {
			return eris.Wrapf(err, "init: write %s", path)
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
