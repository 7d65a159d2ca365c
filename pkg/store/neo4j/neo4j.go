package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const connectivityRetries = 3

// GraphExecutor implements store.Executor on a Neo4j database. Every
// statement runs in its own managed write transaction, so a failing
// statement never rolls back the ones before it.
type GraphExecutor struct {
	driver   neo4jv5.DriverWithContext
	database string
	timeout  time.Duration
}

// Config holds the connection settings of a GraphExecutor.
type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
}

// ConfigFromEnv reads NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, NEO4J_DATABASE,
// NEO4J_TIMEOUT_SECONDS and NEO4J_MAX_POOL_SIZE.
func ConfigFromEnv() Config {
	return Config{
		URI:         util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
		User:        util.GetEnvString("NEO4J_USER", "neo4j"),
		Password:    util.GetEnv("NEO4J_PASSWORD"),
		Database:    util.GetEnv("NEO4J_DATABASE"),
		Timeout:     time.Duration(util.GetEnvPositiveInt("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxPoolSize: util.GetEnvPositiveInt("NEO4J_MAX_POOL_SIZE", 50),
	}
}

// NewGraphExecutor connects to Neo4j and verifies connectivity, retrying a
// few times while the database starts up.
func NewGraphExecutor(ctx context.Context, cfg Config) (*GraphExecutor, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}

	auth := neo4jv5.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4jv5.NewDriverWithContext(cfg.URI, auth, func(c *neo4jv5.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	err = util.RetryErrWithContext(ctx, connectivityRetries, time.Second, func(ctx context.Context) error {
		vCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return driver.VerifyConnectivity(vCtx)
	})
	if err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	logger.Info("[Neo4j] Connected", "uri", cfg.URI, "database", cfg.Database)
	return &GraphExecutor{
		driver:   driver,
		database: cfg.Database,
		timeout:  cfg.Timeout,
	}, nil
}

// Execute runs statement in a write transaction and reports how many
// records it returned.
func (g *GraphExecutor) Execute(ctx context.Context, statement string) (*store.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4jv5.SessionConfig{
		AccessMode:   neo4jv5.AccessModeWrite,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records), nil
	})
	if err != nil {
		return nil, err
	}
	return &store.Result{Rows: rows.(int)}, nil
}

// Close releases the driver's connections.
func (g *GraphExecutor) Close(ctx context.Context) error {
	if g == nil || g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}
