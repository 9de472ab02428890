package main

import (
	"github.com/spf13/cobra"

	"github.com/dpack-io/dpack/internal/dpack/commands"
)

func NewRulesCommand() *cobra.Command {
	var (
		includeDotenv bool
		exclude       []string
	)

	cmd := &cobra.Command{
		Use:   "rules [directory]",
		Short: "Print the compiled exclusion rules for a directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return commands.Rules(dir, includeDotenv, exclude)
		},
	}

	cmd.Flags().BoolVar(&includeDotenv, "include-dotenv", false, "Keep .env files in the archive")
	cmd.Flags().StringArrayVarP(&exclude, "exclude", "x", nil, "Extra exclusion pattern (repeatable)")

	return cmd
}
