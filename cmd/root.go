package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/matchapi"
)

const (
	app = "closetbot"
)

type Config struct {
	APIURL         string        `mapstructure:"api-url"`
	TokenFile      string        `mapstructure:"token-file"`
	Token          string        `mapstructure:"token"`
	UserAgent      string        `mapstructure:"user-agent"`
	PollInterval   time.Duration `mapstructure:"poll-interval"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	StateDir       string        `mapstructure:"state-dir"`
	Export         *ExportConfig `mapstructure:"export"`
	Filter         *FilterConfig `mapstructure:"filter"`
	AI             *AIConfig     `mapstructure:"ai"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Layout string `mapstructure:"layout"`
}

type FilterConfig struct {
	MinGrade    string `mapstructure:"min-grade"`
	ExcludeFile string `mapstructure:"exclude-file"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "closetbot submits brand and influencer compatibility analyses and exports the scored results",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"api-url":                "CLOSETBOT_API_URL",
		"token-file":             "CLOSETBOT_TOKEN_FILE",
		"token":                  "CLOSETBOT_TOKEN",
		"state-dir":              "CLOSETBOT_STATE_DIR",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("api-url", matchapi.DefaultAPIURL)
	viper.SetDefault("poll-interval", jobs.DefaultInterval)
	viper.SetDefault("request-timeout", matchapi.DefaultTimeout)
	viper.SetDefault("state-dir", defaultStateDir())
	viper.SetDefault("export.dir", ".")
	viper.SetDefault("export.layout", "full")
	viper.SetDefault("ai.provider", "gemini")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is closetbot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "analysis API base url")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	// A .env file is optional; values already in the environment win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The default config file is optional; an explicit one is not.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Export == nil {
		config.Export = &ExportConfig{}
	}
	if config.Filter == nil {
		config.Filter = &FilterConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	return config, nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + app
	}
	return filepath.Join(home, "."+app)
}
