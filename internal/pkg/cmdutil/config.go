// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GetStringConfig returns flagValue, or the config value for key if flagValue is empty.
// Flag values take precedence over config file values.
func GetStringConfig(key, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// GetIntConfig returns the value of flag when it was given on the command
// line, then the config value for key, then the flag default.
func GetIntConfig(cmd *cobra.Command, flag, key string) int {
	if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

// GetBoolConfig resolves a bool like GetIntConfig
func GetBoolConfig(cmd *cobra.Command, flag, key string) bool {
	if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
		return viper.GetBool(key)
	}
	v, _ := cmd.Flags().GetBool(flag)
	return v
}

// RequireString returns an error naming flag and key when value is empty
func RequireString(flag, key, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required (or set %s in the config file)", flag, key)
	}
	return nil
}
