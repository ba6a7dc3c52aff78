package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-interviewer/internal/server"
)

const (
	app = "hh-interviewer"
)

type Config struct {
	Server    server.Config   `mapstructure:"server"`
	Interview InterviewConfig `mapstructure:"interview"`
	Store     StoreConfig     `mapstructure:"store"`
	Lock      LockConfig      `mapstructure:"lock"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	AI        AIConfig        `mapstructure:"ai"`
}

type InterviewConfig struct {
	MaxQuestions    int           `mapstructure:"max-questions"`
	ProviderTimeout time.Duration `mapstructure:"provider-timeout"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
}

type StoreConfig struct {
	// Backend is one of memory, sqlite, postgres or mongo.
	Backend string       `mapstructure:"backend"`
	DSN     string       `mapstructure:"dsn" json:"-"`
	DSNFile string       `mapstructure:"dsn-file"`
	Mongo   *MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri" json:"-"`
	URIFile    string `mapstructure:"uri-file"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LockConfig struct {
	// Backend is memory or redis.
	Backend string       `mapstructure:"backend"`
	Redis   *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password" json:"-"`
	PasswordFile string        `mapstructure:"password-file"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	WaitTimeout  time.Duration `mapstructure:"wait-timeout"`
}

type JobsConfig struct {
	// Source is file or headhunter.
	Source     string            `mapstructure:"source"`
	File       string            `mapstructure:"file"`
	Headhunter *HeadhunterConfig `mapstructure:"headhunter"`
}

type HeadhunterConfig struct {
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
	APIURL    string `mapstructure:"api-url"`
}

type AIConfig struct {
	// Provider is gemini, openai or empty for the built-in fallbacks only.
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key" json:"-"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key" json:"-"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
	MaxRetries int    `mapstructure:"max-retries"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "hh-interviewer runs adaptive mock interviews for job postings",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.gemini.api-key-file":     "GEMINI_API_KEY_FILE",
	"ai.openai.api-key-file":     "OPENAI_API_KEY_FILE",
	"jobs.headhunter.token-file": "HH_TOKEN_FILE",
	"lock.redis.password-file":   "REDIS_PASSWORD_FILE",
	"store.dsn-file":             "STORE_DSN_FILE",
	"store.mongo.uri-file":       "MONGO_URI_FILE",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Without an explicit --config a missing file means defaults.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &config, nil
}

// bindMaxQuestions binds the running command's --max-questions flag. Both
// serve and practice define it, so binding happens per invocation.
func bindMaxQuestions(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlag("interview.max-questions", cmd.Flags().Lookup("max-questions"))
}
