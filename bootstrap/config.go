package bootstrap

import (
	"fmt"
	"os"

	"dokq/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output.
func InitLogger() (*zap.Logger, *zap.SugaredLogger, error) {
	// Create a colored console encoder config
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stdout),
		zapcore.DebugLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}

	sugar.Infow("Config loaded",
		"environment", cfg.Environment,
		"api_port", cfg.API.Port,
		"csrf_store", cfg.CSRF.Store,
		"secret_provider", cfg.Secrets.Provider)

	return cfg, nil
}
