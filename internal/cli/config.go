package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/pipeline"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage newscheck configuration",
	Long: `Manage newscheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NEWSCHECK_*, provider API keys, .env)
3. Config file (~/.newscheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, and environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		// Keys are never echoed
		redacted := *cfg
		redacted.LLM.APIKey = redact(cfg.LLM.APIKey)
		redacted.Sources.NewsAPI.APIKey = redact(cfg.Sources.NewsAPI.APIKey)
		redacted.Sources.GNews.APIKey = redact(cfg.Sources.GNews.APIKey)
		redacted.Sources.GoogleFactCheck.APIKey = redact(cfg.Sources.GoogleFactCheck.APIKey)

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Current Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()

		yamlData, err := yaml.Marshal(&redacted)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Println(string(yamlData))

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (NEWSCHECK_*, OPENAI_API_KEY, ANTHROPIC_API_KEY, HF_TOKEN,")
		fmt.Println("     NEWS_API_KEY, GNEWS_API_KEY, GOOGLE_FACTCHECK_API_KEY, OLLAMA_BASE_URL)")
		fmt.Println("  3. Config file (~/.newscheck/config.yaml)")
		fmt.Println("  4. Defaults")
		fmt.Println()

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.newscheck/config.yaml with every available option.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".newscheck")
		configPath := filepath.Join(configDir, "config.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'newscheck config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		// Marshal before creating the file so a failure leaves nothing behind
		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		// Helper for writing with error checking
		printf := func(format string, a ...interface{}) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(f, format, a...)
		}

		printf("# newscheck configuration file\n")
		printf("#\n")
		printf("# Configuration hierarchy (highest to lowest priority):\n")
		printf("#   1. CLI flags\n")
		printf("#   2. Environment variables (NEWSCHECK_*, e.g. NEWSCHECK_AGGREGATION_DEADLINE=10s)\n")
		printf("#   3. This config file\n")
		printf("#   4. Built-in defaults\n\n")
		printf("%s", yamlData)
		printf("\n# API keys (recommended to keep in the environment or a .env file):\n")
		printf("#   OPENAI_API_KEY=sk-...\n")
		printf("#   ANTHROPIC_API_KEY=sk-ant-...\n")
		printf("#   HF_TOKEN=hf_...\n")
		printf("#   NEWS_API_KEY=...\n")
		printf("#   GNEWS_API_KEY=...\n")
		printf("#   GOOGLE_FACTCHECK_API_KEY=...\n")
		printf("#   OLLAMA_BASE_URL=http://localhost:11434\n")

		if err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  newscheck config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n", configPath)
		fmt.Printf("\n")

		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe the reasoning backend",
	Long: `Validate the effective configuration, list the evidence sources that
would be consulted, and check that the configured reasoning backend answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			fmt.Printf("✗ %v\n", err)
			return err
		}
		fmt.Printf("✓ Configuration is valid (request deadline %v)\n", cfg.RequestDeadline())

		p, err := pipeline.NewPipeline(cfg, pipeline.Options{})
		if err != nil {
			return fmt.Errorf("create pipeline: %w", err)
		}

		for _, s := range p.Sources() {
			fmt.Printf("✓ Source %s (%s)\n", s.Name(), s.Kind())
		}

		provider := p.Provider()
		if provider == nil {
			fmt.Printf("✗ No reasoning backend configured; every verdict will be UNCERTAIN\n")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Verdict.Timeout+5*time.Second)
		defer cancel()
		if provider.IsAvailable(ctx) {
			fmt.Printf("✓ Backend %s is reachable\n", provider.Name())
		} else {
			fmt.Printf("✗ Backend %s is not reachable\n", provider.Name())
		}
		return nil
	},
}

// redact keeps only enough of a key to tell which one is set
func redact(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
}
