package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/babylonlabs-io/simple-staking/pkg"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFileName = "config.yml"
	configPathEnv         = "SIMPLE_STAKING_CONFIG"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "simple-staking",
		Short: "Token staking ledger with daily ROI and one-time referral bonuses",
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := pkg.Getenv(configPathEnv, getDefaultConfigFile(homePath, defaultConfigFileName))

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}
