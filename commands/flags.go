package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// mustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func mustString(s string, _ error) string { return s }

// configFlag adds the --config/-c flag. A missing file falls back to environment variables.
func configFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "config.yml", "Config file path (yaml, toml or json)")
}

// outputFlag adds the --out/-o flag for the address book path.
// Also supports the --output-path alias used by the config key.
func outputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "Address book output path, the extension selects json, yaml or toml")

	existingNormalize := cmd.Flags().GetNormalizeFunc()
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "output-path" {
			return pflag.NormalizedName("out")
		}
		if existingNormalize != nil {
			return existingNormalize(f, name)
		}

		return pflag.NormalizedName(name)
	})
}
