package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Pipeline holds configuration for the background payment pipeline.
// Credentials are deliberately not marked required: each dependency
// validates its own credentials at first use so a missing value fails
// there, not at parse time.
type Pipeline struct {
	EmailID       string `env:"EMAIL_ID"`
	EmailPassword string `env:"EMAIL_PASSWORD"`
	IMAPAddr      string `env:"IMAP_ADDR" envDefault:"imap.gmail.com:993"`

	MQTTBroker   string `env:"MQTT_BROKER" envDefault:"localhost"`
	MQTTPort     int    `env:"MQTT_PORT" envDefault:"8883"`
	MQTTUsername string `env:"MQTT_USERNAME"`
	MQTTPassword string `env:"MQTT_PASSWORD"`
	MQTTTopic    string `env:"MQTT_TOPIC" envDefault:"Zenorc"`

	SheetURL       string `env:"GSHEET_URL"`
	SheetCredsPath string `env:"GSHEET_CREDS_PATH" envDefault:"/etc/secrets/Zenorc.json"`

	TargetAmount    string `env:"TARGET_AMOUNT" envDefault:"5"`
	CooldownSeconds int    `env:"COOLDOWN_SECONDS" envDefault:"40"`
	PollSeconds     int    `env:"POLL_SECONDS" envDefault:"5"`
}

// Cooldown is the minimum gap between publish attempts.
func (p Pipeline) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

// PollInterval is the delay between inbox scans.
func (p Pipeline) PollInterval() time.Duration {
	return time.Duration(p.PollSeconds) * time.Second
}

// Server holds configuration for the repo-analysis HTTP backend.
type Server struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OutputDir    string `env:"OUTPUT_DIR" envDefault:"ai_agents"`
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":8080"`
}

// LoadDotenv loads a .env file if one exists. Absence is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ParsePipeline reads pipeline configuration from the environment.
func ParsePipeline() (Pipeline, error) {
	var cfg Pipeline
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseServer reads server configuration from the environment.
func ParseServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
