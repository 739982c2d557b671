package env

import (
	"os"

	"github.com/agentuity/go-memo/logger"
	"github.com/spf13/cobra"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

// LogLevel resolves the --log-level flag, then MEMO_LOG_LEVEL, then info.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	if level, ok := logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "info")); ok {
		return level
	}
	return logger.LevelInfo
}

// NewLogger returns a console logger at the level chosen by LogLevel.
func NewLogger(cmd *cobra.Command) logger.Logger {
	return logger.NewConsoleLoggerWithWriter(cmd.ErrOrStderr(), LogLevel(cmd))
}
