package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/intraview/internal/sweeper"
	"github.com/spigell/intraview/internal/tasks"
)

const (
	app       = "intraview"
	envPrefix = "INTRAVIEW"
)

type Config struct {
	Listen  string         `mapstructure:"listen" validate:"required"`
	Auth    *AuthConfig    `mapstructure:"auth" validate:"required"`
	Store   *StoreConfig   `mapstructure:"store" validate:"required"`
	Queue   *QueueConfig   `mapstructure:"queue" validate:"required"`
	AI      *AIConfig      `mapstructure:"ai" validate:"required"`
	Speech  *SpeechConfig  `mapstructure:"speech" validate:"required"`
	Sweeper *SweeperConfig `mapstructure:"sweeper" validate:"required"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt-secret"`
	JWTSecretFile string `mapstructure:"jwt-secret-file"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=memory postgres"`
	DatabaseURL string `mapstructure:"database-url" validate:"required_if=Driver postgres"`
	Migrate     bool   `mapstructure:"migrate"`
}

type QueueConfig struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=local redis"`
	RedisURL    string        `mapstructure:"redis-url" validate:"required_if=Driver redis"`
	Key         string        `mapstructure:"key"`
	Workers     int           `mapstructure:"workers" validate:"gte=1,lte=256"`
	Size        int           `mapstructure:"size" validate:"gte=1"`
	TaskTimeout time.Duration `mapstructure:"task-timeout" validate:"gt=0"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type SpeechConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	LanguageCode    string `mapstructure:"language-code"`
	Model           string `mapstructure:"model"`
	CredentialsFile string `mapstructure:"credentials-file"`
	MaxAudioBytes   int64  `mapstructure:"max-audio-bytes" validate:"gte=0"`
}

type SweeperConfig struct {
	Schedule          string        `mapstructure:"schedule" validate:"required"`
	GenerationTimeout time.Duration `mapstructure:"generation-timeout" validate:"gt=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "intraview runs interview practice sessions: generated questions, scored answers and aggregated scores",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is intraview.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so environment overrides reach Unmarshal
// even when the config file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")

	v.SetDefault("auth.jwt-secret", "")
	v.SetDefault("auth.jwt-secret-file", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database-url", "")
	v.SetDefault("store.migrate", true)

	v.SetDefault("queue.driver", "local")
	v.SetDefault("queue.redis-url", "")
	v.SetDefault("queue.key", tasks.DefaultQueueKey)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 256)
	v.SetDefault("queue.task-timeout", 2*time.Minute)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 0)

	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.language-code", "en-US")
	v.SetDefault("speech.model", "")
	v.SetDefault("speech.credentials-file", "")
	v.SetDefault("speech.max-audio-bytes", 10<<20)

	v.SetDefault("sweeper.schedule", sweeper.DefaultSchedule)
	v.SetDefault("sweeper.generation-timeout", sweeper.DefaultTimeout)
}

// bindEnv maps keys such as queue.redis-url to INTRAVIEW_QUEUE_REDIS_URL.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and environment are enough.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
