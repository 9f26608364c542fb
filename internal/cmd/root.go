package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/appid"
	"github.com/namelens/sumlens/internal/config"
	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/provider"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	appIdentity = appid.Get()
	appConfig   *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the application identity.
func GetAppIdentity() *appid.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   appIdentity.BinaryName,
	Short: appIdentity.Description,
	Long: fmt.Sprintf(`%s - %s

Summaries come from the configured provider chain; when every provider
fails an extractive summary of the input is returned instead.`, appIdentity.BinaryName, appIdentity.Description),
	SilenceUsage: true,
}

// Execute runs the command tree. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep config loading from emitting metrics before serve installs the
	// Prometheus-backed system.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", appIdentity.ConfigName))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace provider requests/responses to NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads .env, the config file and the environment into
// appConfig. Invalid configuration exits with ExitConfigInvalid.
func initConfig() {
	observability.InitCLILogger(appIdentity.BinaryName, verbose)
	logger := observability.CLILogger

	if err := loadEnvFile(envFile); err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to load env file", err)
	}

	if traceFile != "" {
		if _, err := provider.EnableTracing(traceFile); err != nil {
			logger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			// The trace file stays open for the life of the process.
			logger.Debug("Provider tracing enabled", zap.String("file", traceFile))
		}
	}

	v := viper.GetViper()
	configureConfigFile(v)

	if err := v.ReadInConfig(); err == nil {
		logger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	} else {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Debug("No config file found, using defaults and environment variables")
		} else {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Error reading config file", err)
		}
	}

	config.SetDefaults(v)
	config.BindEnv(v)

	cfg, err := config.Load(v)
	if err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	appConfig = cfg
}

func configureConfigFile(v *viper.Viper) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}

	if dir := gfconfig.GetAppConfigDir(appIdentity.ConfigName); dir != "" {
		v.AddConfigPath(dir)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "."+appIdentity.ConfigName))
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. An empty path loads ./.env if it exists.
func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// currentConfig returns the loaded configuration, loading defaults when
// a command runs without the cobra initializer (tests).
func currentConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}
