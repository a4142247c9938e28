package unit

import (
	"os"
	"testing"

	"github.com/zenorc/zenorc/internal/config"
)

func clearPipelineEnv() {
	for _, k := range []string{
		"EMAIL_ID", "EMAIL_PASSWORD", "IMAP_ADDR",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_TOPIC",
		"GSHEET_URL", "GSHEET_CREDS_PATH",
		"TARGET_AMOUNT", "COOLDOWN_SECONDS", "POLL_SECONDS",
	} {
		os.Unsetenv(k)
	}
}

func TestParsePipeline_Defaults(t *testing.T) {
	clearPipelineEnv()

	cfg, err := config.ParsePipeline()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.IMAPAddr != "imap.gmail.com:993" {
		t.Fatalf("imap addr default mismatch: %s", cfg.IMAPAddr)
	}
	if cfg.MQTTBroker != "localhost" || cfg.MQTTPort != 8883 {
		t.Fatalf("mqtt defaults mismatch: %s:%d", cfg.MQTTBroker, cfg.MQTTPort)
	}
	if cfg.MQTTTopic != "Zenorc" {
		t.Fatalf("topic default mismatch: %s", cfg.MQTTTopic)
	}
	if cfg.SheetCredsPath != "/etc/secrets/Zenorc.json" {
		t.Fatalf("creds path default mismatch: %s", cfg.SheetCredsPath)
	}
	if cfg.TargetAmount != "5" {
		t.Fatalf("target amount default mismatch: %s", cfg.TargetAmount)
	}
	if cfg.CooldownSeconds != 40 || cfg.PollSeconds != 5 {
		t.Fatalf("interval defaults mismatch: cooldown=%d poll=%d", cfg.CooldownSeconds, cfg.PollSeconds)
	}

	// missing credentials are NOT a parse error; they fail at first use
	if cfg.EmailID != "" || cfg.SheetURL != "" {
		t.Fatalf("expected empty credentials, got %+v", cfg)
	}
}

func TestParsePipeline_Overrides(t *testing.T) {
	clearPipelineEnv()
	os.Setenv("MQTT_PORT", "1883")
	os.Setenv("COOLDOWN_SECONDS", "60")
	os.Setenv("TARGET_AMOUNT", "10")
	defer clearPipelineEnv()

	cfg, err := config.ParsePipeline()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTTPort != 1883 {
		t.Fatalf("port override ignored: %d", cfg.MQTTPort)
	}
	if cfg.Cooldown().Seconds() != 60 {
		t.Fatalf("cooldown override ignored: %v", cfg.Cooldown())
	}
	if cfg.TargetAmount != "10" {
		t.Fatalf("amount override ignored: %s", cfg.TargetAmount)
	}
}

func TestParseServer_Defaults(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OUTPUT_DIR", "LISTEN_ADDR"} {
		os.Unsetenv(k)
	}

	cfg, err := config.ParseServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "ai_agents" {
		t.Fatalf("output dir default mismatch: %s", cfg.OutputDir)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr default mismatch: %s", cfg.ListenAddr)
	}
}
