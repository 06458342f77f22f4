package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/model"
)

// version is overridden at build time with -ldflags "-X"
var version = "v0.1.0"

var (
	cfgFile   string
	envFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// sourceKeyEnv maps source names to the environment variables holding their keys
var sourceKeyEnv = map[string]string{
	model.SourceNewsAPI:         "NEWS_API_KEY",
	model.SourceGNews:           "GNEWS_API_KEY",
	model.SourceGoogleFactCheck: "GOOGLE_FACTCHECK_API_KEY",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newscheck",
	Short: "newscheck - evidence-grounded claim classification",
	Long: `newscheck classifies a short news claim as REAL, FAKE, or UNCERTAIN.

It extracts the central claim, retrieves evidence from encyclopedic, news,
and fact-checking sources, and asks a reasoning backend to judge the claim
against that evidence only.

Every verdict carries a rationale, the evidence it relied on, and a
confidence score computed from the evidence, never from the model.
When evidence or the backend is missing, the answer is UNCERTAIN.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of newscheck.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newscheck %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newscheck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with provider API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the dotenv file, config file and ENV variables
func initConfig() {
	// A missing .env is normal; keys may already be exported
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", envFile, err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".newscheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match NEWSCHECK_*
	viper.SetEnvPrefix("NEWSCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// seedDefaults registers every default config key with viper so that
// NEWSCHECK_AGGREGATION_DEADLINE and friends override it
func seedDefaults() error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaults(key, nested)
			continue
		}
		viper.SetDefault(key, value)
	}
}

// loadConfig layers the config file and NEWSCHECK_* variables over the
// defaults, fills API keys from the environment and initializes logging.
func loadConfig() (*model.Config, error) {
	// Env overrides only resolve for keys viper already knows about
	if err := seedDefaults(); err != nil {
		return nil, err
	}

	// Decoding into a zero value keeps mapstructure from merging a short
	// list from the file with the longer default list
	cfg := &model.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnvKeys(cfg)

	// Empty flag defaults must not clobber the file, so these are not bound
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if verbose && (cfg.Logging.Level == "" || cfg.Logging.Level == "warn") {
		cfg.Logging.Level = "debug"
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	return cfg, nil
}

// applyEnvKeys fills source API keys the config file left empty
func applyEnvKeys(cfg *model.Config) {
	for name, env := range sourceKeyEnv {
		key := os.Getenv(env)
		if key == "" {
			continue
		}
		switch name {
		case model.SourceNewsAPI:
			if cfg.Sources.NewsAPI.APIKey == "" {
				cfg.Sources.NewsAPI.APIKey = key
			}
		case model.SourceGNews:
			if cfg.Sources.GNews.APIKey == "" {
				cfg.Sources.GNews.APIKey = key
			}
		case model.SourceGoogleFactCheck:
			if cfg.Sources.GoogleFactCheck.APIKey == "" {
				cfg.Sources.GoogleFactCheck.APIKey = key
			}
		}
	}
}
