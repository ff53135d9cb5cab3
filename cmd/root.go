package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/endorses/gridsync/cmd/connect"
	"github.com/endorses/gridsync/cmd/export"
	"github.com/endorses/gridsync/cmd/view"
	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "gridsync",
	Short:   "gridsync shows server-driven tables in your terminal",
	Long:    fmt.Sprintf("gridsync %s - Terminal client for server-driven table UIs", version.GetVersion()),
	Version: version.GetFullVersion(),
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func addSubCommands(root *cobra.Command) {
	root.AddCommand(view.ViewCmd)
	root.AddCommand(connect.ConnectCmd)
	root.AddCommand(export.ExportCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Initialize structured logging
	logger.Initialize()

	addSubCommands(rootCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gridsync/config.yaml or $HOME/.gridsync.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Priority order for config files:
		// 1. ~/.config/gridsync/config.yaml
		// 2. ~/.gridsync.yaml
		viper.AddConfigPath(home + "/.config/gridsync")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigName(".gridsync")
		}
	}

	viper.SetEnvPrefix("gridsync")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "path", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("tui.theme", "solarized")
	viper.SetDefault("tui.virtual", true)
	viper.SetDefault("tui.row_height", 1)
	viper.SetDefault("connect.polling", true)
}
