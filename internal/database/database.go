package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"trackify/internal/config"
)

const (
	// ApplicationName tags ledger sessions in pg_stat_activity.
	ApplicationName = "trackify"

	connectTimeout = 5 * time.Second
	pingTimeout    = 5 * time.Second
)

var otelOptions = []otelsql.Option{
	otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	otelsql.WithSQLCommenter(true),
}

// openDB is swapped in tests to hand out a sqlmock connection.
var openDB = func(c driver.Connector) *sql.DB {
	return otelsql.OpenDB(c, otelOptions...)
}

// ConnConfig turns the ledger settings into a parsed pgx connection config.
// The session is tagged with ApplicationName and dials give up after
// connectTimeout.
func ConnConfig(c config.DatabaseConfig) (*pgx.ConnConfig, error) {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return nil, fmt.Errorf("invalid database config: host, port, user, and name are required")
	}

	q := url.Values{}
	q.Set("application_name", ApplicationName)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout/time.Second)))
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	cc, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	return cc, nil
}

// NewPostgres opens the upload ledger through a pgx connector wrapped by
// otelsql, exports pool stats, applies pool limits and verifies connectivity.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	cc, err := ConnConfig(c)
	if err != nil {
		return nil, err
	}

	db := openDB(stdlib.GetConnector(*cc))

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelOptions...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register db stats: %w", err)
	}

	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}
