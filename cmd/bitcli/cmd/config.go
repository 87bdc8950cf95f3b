package cmd

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `config prints the configuration after merging the defaults, the
configuration file and the flags, in that order of precedence.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			spew.Fdump(cmd.OutOrStdout(), a.cfg)
		},
	}

	// The decode flags, so their effect on the config can be inspected.
	flags := configCmd.Flags()
	flags.String("layout", "", "field layout")
	flags.String("format", "", "output format (table, json, xdr)")
	flags.Int("parallel", 0, "number of files decoded concurrently")

	return configCmd
}
