package neo4jdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Config struct {
	URI         string        `envconfig:"NEO4J_URI"`
	User        string        `envconfig:"NEO4J_USER" default:"neo4j"`
	Password    string        `envconfig:"NEO4J_PASSWORD"`
	Database    string        `envconfig:"NEO4J_DATABASE"`
	Timeout     time.Duration `envconfig:"NEO4J_TIMEOUT" default:"10s"`
	MaxPoolSize int           `envconfig:"NEO4J_MAX_POOL_SIZE" default:"50"`
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.URI) != "" }

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// New returns (nil, nil) when no URI is configured so callers can treat the graph as optional.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return fmt.Errorf("neo4jdb: not configured")
	}
	return c.Driver.VerifyConnectivity(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
