package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// TranscriptionConfig selects and credentials the live speech provider.
// Provider "none" (or a provider that fails to construct) degrades the
// session to the static default words-per-minute rate.
type TranscriptionConfig struct {
	Provider        string `mapstructure:"provider" validate:"required,oneof=none deepgram google"`
	DeepgramKey     string `mapstructure:"deepgram_key"`
	GoogleKey       string `mapstructure:"google_key"`
	GoogleProjectID string `mapstructure:"google_project_id"`
	Language        string `mapstructure:"language"`
	Model           string `mapstructure:"model"`
}

// StudioConfig carries presentation and device tunables. TickMs and
// PixelsPerWord are the teleprompter pacing constants; they are configuration,
// not code constants, so deployments can re-tune the scroll feel.
type StudioConfig struct {
	AcquireTimeoutSeconds int    `mapstructure:"acquire_timeout_seconds" validate:"required,min=1"`
	PrompterTickMs        int    `mapstructure:"prompter_tick_ms" validate:"required,min=10"`
	PrompterPixelsPerWord int    `mapstructure:"prompter_pixels_per_word" validate:"required,min=1"`
	MediaMimeType         string `mapstructure:"media_mime_type" validate:"required"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	CorsOrigins string `mapstructure:"cors_origins"`

	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Studio        StudioConfig        `mapstructure:"studio"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "studio-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("TRANSCRIPTION__PROVIDER", "none")
	v.SetDefault("TRANSCRIPTION__DEEPGRAM_KEY", "")
	v.SetDefault("TRANSCRIPTION__GOOGLE_KEY", "")
	v.SetDefault("TRANSCRIPTION__GOOGLE_PROJECT_ID", "")
	v.SetDefault("TRANSCRIPTION__LANGUAGE", "en-US")
	v.SetDefault("TRANSCRIPTION__MODEL", "")

	v.SetDefault("STUDIO__ACQUIRE_TIMEOUT_SECONDS", 30)
	v.SetDefault("STUDIO__PROMPTER_TICK_MS", 50)
	v.SetDefault("STUDIO__PROMPTER_PIXELS_PER_WORD", 20)
	v.SetDefault("STUDIO__MEDIA_MIME_TYPE", "video/webm")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
