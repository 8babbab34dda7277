package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
	Gemini Gemini `yaml:"gemini"`
}

type Server struct {
	// Address the HTTP server listens on
	Listen string `yaml:"listen" example:":8080"`
	// Password gating the teacher panel endpoints
	TeacherPassword string `yaml:"teacher_password" validate:"required"`
}

type Gemini struct {
	// Gemini API key
	APIKey string `yaml:"api_key" example:"AIzaSyAbc123456789DEF789ghi012JKL345mno678" validate:"required"`
	// Model used for readings
	Model string `yaml:"model" example:"gemini-2.5-flash"`
	// Per-request timeout on the underlying HTTP transport, in seconds
	TimeoutSec int `yaml:"timeout_sec" example:"30"`
}

type Log struct {
	// Minimum level for console output
	Level string `yaml:"level" example:"debug"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Log.Level == "" {
		result.Log.Level = "debug"
	}
	if result.Server.Listen == "" {
		result.Server.Listen = ":8080"
	}
	if result.Gemini.Model == "" {
		result.Gemini.Model = "gemini-2.5-flash"
	}
	if result.Gemini.TimeoutSec == 0 {
		result.Gemini.TimeoutSec = 30
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
