package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slate-hq/slate/pkg/cli"
	"slate-hq/slate/pkg/config"
	"slate-hq/slate/pkg/expiry/policy"
)

var validateFlags struct {
	policyFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and policy files",
	Long: `Validate the configuration file and, when given, a TTL policy
override file, without starting the daemon.

Examples:
  # Validate the config file
  slate validate --config slate.yaml

  # Validate a policy override file too
  slate validate --config slate.yaml --policies ttl_policies.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.policyFile, "policies", "", "TTL policy override file to validate")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)

	policyFile := validateFlags.policyFile
	if policyFile == "" {
		policyFile = cfg.Policies.FilePath
	}
	if policyFile != "" {
		table, err := policy.LoadFile(policyFile)
		if err != nil {
			return cli.NewConfigError("policies", err.Error())
		}
		fmt.Printf("✓ Policy file valid: %s (%d categories)\n", policyFile, len(table.Policies()))
	}

	return nil
}
