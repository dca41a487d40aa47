package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Oracle    Oracle    `mapstructure:"oracle"`
	Store     Store     `mapstructure:"store"`
	Search    Search    `mapstructure:"search"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Report    Report    `mapstructure:"report"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Oracle holds configuration for the generative completion service
type Oracle struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries"`
	PauseMillis int     `mapstructure:"pause_millis"` // Pause between batch calls
}

// Store holds article store configuration
type Store struct {
	Directory      string   `mapstructure:"directory"`
	SourceTables   []string `mapstructure:"source_tables"`
	LookbackDays   int      `mapstructure:"lookback_days"`
	PerSourceLimit int      `mapstructure:"per_source_limit"`
}

// Search holds citation-search configuration
type Search struct {
	DefaultProvider string `mapstructure:"default_provider"`
	MaxResults      int    `mapstructure:"max_results"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
	GoogleSearchID  string `mapstructure:"google_search_id"`
}

// Pipeline holds stage tuning knobs
type Pipeline struct {
	FilterBatchSize  int  `mapstructure:"filter_batch_size"`
	ClusterBatchSize int  `mapstructure:"cluster_batch_size"`
	RankBatchSize    int  `mapstructure:"rank_batch_size"`
	ReportBatchSize  int  `mapstructure:"report_batch_size"`
	MinBodyLength    int  `mapstructure:"min_body_length"`
	KeepPerEvent     int  `mapstructure:"keep_per_event"`
	SaveIntermediate bool `mapstructure:"save_intermediate"`
}

// Report holds report output configuration
type Report struct {
	OutputDirectory string `mapstructure:"output_directory"`
	Title           string `mapstructure:"title"`
	MaxReferences   int    `mapstructure:"max_references"`
	MaxPaperRefs    int    `mapstructure:"max_paper_refs"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".curator")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.App.ConfigFile = viper.ConfigFileUsed()
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Store.Directory != "" {
		config.Store.Directory = expandPath(config.Store.Directory)
	}
	if config.Report.OutputDirectory != "" {
		config.Report.OutputDirectory = expandPath(config.Report.OutputDirectory)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the global configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".curator")

	viper.SetDefault("oracle.model", "gemini-flash-lite-latest")
	viper.SetDefault("oracle.temperature", 0.1)
	viper.SetDefault("oracle.max_retries", 5)
	viper.SetDefault("oracle.pause_millis", 1000)

	viper.SetDefault("store.directory", ".curator")
	viper.SetDefault("store.source_tables", []string{"wire_articles", "vendor_articles"})
	viper.SetDefault("store.lookback_days", 3)
	viper.SetDefault("store.per_source_limit", 200)

	viper.SetDefault("search.default_provider", "arxiv")
	viper.SetDefault("search.max_results", 5)

	viper.SetDefault("pipeline.filter_batch_size", 20)
	viper.SetDefault("pipeline.cluster_batch_size", 30)
	viper.SetDefault("pipeline.rank_batch_size", 20)
	viper.SetDefault("pipeline.report_batch_size", 5)
	viper.SetDefault("pipeline.min_body_length", 50)
	viper.SetDefault("pipeline.keep_per_event", 3)
	viper.SetDefault("pipeline.save_intermediate", true)

	viper.SetDefault("report.output_directory", "reports")
	viper.SetDefault("report.title", "AI Frontier Briefing")
	viper.SetDefault("report.max_references", 25)
	viper.SetDefault("report.max_paper_refs", 15)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("oracle.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("search.google_api_key", []string{
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
		"GOOGLE_CSE_API_KEY",
	})

	bindEnvKeys("search.google_search_id", []string{
		"GOOGLE_CUSTOM_SEARCH_ID",
		"GOOGLE_CSE_ID",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CURATOR_DEBUG",
	})

	bindEnvKeys("search.default_provider", []string{
		"SEARCH_PROVIDER",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig checks configuration invariants that would otherwise
// surface as confusing failures mid-run.
func validateConfig(config *Config) error {
	if config.Store.LookbackDays <= 0 {
		return fmt.Errorf("store.lookback_days must be positive, got %d", config.Store.LookbackDays)
	}
	if config.Store.PerSourceLimit <= 0 {
		return fmt.Errorf("store.per_source_limit must be positive, got %d", config.Store.PerSourceLimit)
	}
	if len(config.Store.SourceTables) == 0 {
		return fmt.Errorf("store.source_tables must name at least one table")
	}
	if config.Oracle.MaxRetries < 1 {
		return fmt.Errorf("oracle.max_retries must be at least 1, got %d", config.Oracle.MaxRetries)
	}
	if config.Pipeline.KeepPerEvent < 1 {
		return fmt.Errorf("pipeline.keep_per_event must be at least 1, got %d", config.Pipeline.KeepPerEvent)
	}
	if config.Report.MaxPaperRefs > config.Report.MaxReferences {
		return fmt.Errorf("report.max_paper_refs (%d) cannot exceed report.max_references (%d)",
			config.Report.MaxPaperRefs, config.Report.MaxReferences)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
