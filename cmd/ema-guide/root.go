package main

import (
	"fmt"
	"strings"

	"github.com/koscakluka/ema-guide/core/script"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ema-guide",
		Short:         "Bilingual voice guide for eye-screening sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "ema-guide.yaml", "path to the YAML config file")

	root.AddCommand(newRunCommand(), newScriptsCommand(), newSchemaCommand())
	return root
}

func newScriptsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			library := script.Default()
			for _, key := range library.ScenarioKeys() {
				scenario := library.Scenarios[key]
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d questions\n", key, scenario.Mode, len(scenario.Questions))
			}
			return nil
		},
	}
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the script library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := script.JSONSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(schema)))
			return nil
		},
	}
}
