package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/yungbote/studentdiary-backend/internal/data/db"
	"github.com/yungbote/studentdiary-backend/internal/jobs/enrichment"
	providers "github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/platform/neo4jdb"
	"github.com/yungbote/studentdiary-backend/internal/platform/openai"
	"github.com/yungbote/studentdiary-backend/internal/platform/pinecone"
	"github.com/yungbote/studentdiary-backend/internal/platform/redisdb"
)

const (
	AnalyzerAuto      = "auto"
	AnalyzerOpenAI    = "openai"
	AnalyzerHeuristic = "heuristic"
	AnalyzerNone      = "none"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	LogMode string `envconfig:"LOG_MODE" default:"development"`

	JWTSecretKey string `envconfig:"JWT_SECRET_KEY"`
	AuthDevOwner string `envconfig:"AUTH_DEV_OWNER"`

	AnalyticsTimezone string        `envconfig:"ANALYTICS_TIMEZONE" default:"UTC"`
	ReflectionTimeout time.Duration `envconfig:"REFLECTION_TIMEOUT" default:"15s"`
	// Analyzer picks the analysis provider: auto uses OpenAI when a key is set and the
	// keyword heuristic otherwise.
	Analyzer string `envconfig:"ENRICH_ANALYZER" default:"auto"`

	MetricsEnabled bool     `envconfig:"METRICS_ENABLED" default:"true"`
	CORSOrigins    []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	PromptsYAML    string   `envconfig:"PROMPTS_YAML"`

	DB         db.Config
	OpenAI     openai.Config
	Pinecone   pinecone.Config
	Neo4j      neo4jdb.Config
	Redis      redisdb.Config
	Policy     providers.Policy
	Dispatcher enrichment.Config
	Otel       observability.OtelConfig
}

// LoadConfig reads the whole configuration from the environment. Nested structs use
// their own variable names, so no prefix is applied.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Analyzer = strings.ToLower(strings.TrimSpace(cfg.Analyzer))
	switch cfg.Analyzer {
	case AnalyzerAuto, AnalyzerOpenAI, AnalyzerHeuristic, AnalyzerNone:
	default:
		return Config{}, fmt.Errorf("load config: unknown ENRICH_ANALYZER %q", cfg.Analyzer)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.AnalyticsTimezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load config: ANALYTICS_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c Config) Addr() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
