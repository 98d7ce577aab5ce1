package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PORT", "8080")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr() != ":8080" || cfg.Analyzer != AnalyzerAuto {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Dispatcher.Workers != 4 || cfg.Dispatcher.QueueSize != 256 {
		t.Fatalf("dispatcher defaults = %+v", cfg.Dispatcher)
	}
	if cfg.Policy.MaxRetries != 2 || cfg.Policy.AttemptTimeout != 20*time.Second {
		t.Fatalf("policy defaults = %+v", cfg.Policy)
	}
	if cfg.DB.Driver != "sqlite" || cfg.OpenAI.Enabled() {
		t.Fatalf("db/openai = %+v / %v", cfg.DB, cfg.OpenAI.Enabled())
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("location = %v, %v", loc, err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("ENRICH_WORKERS", "8")
	t.Setenv("ENRICH_ANALYZER", "Heuristic")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr() != ":9000" || cfg.Dispatcher.Workers != 8 || cfg.Analyzer != AnalyzerHeuristic {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ENRICH_ANALYZER", "magic")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown analyzer")
	}
	t.Setenv("ENRICH_ANALYZER", "auto")
	t.Setenv("ANALYTICS_TIMEZONE", "Not/AZone")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for bad timezone")
	}
}
