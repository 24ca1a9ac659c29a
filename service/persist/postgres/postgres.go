package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/lib/pq"

	"github.com/rentfi/go-rentfi/env"
	"github.com/rentfi/go-rentfi/service/logger"
)

type connectionParams struct {
	user     string
	password string
	dbname   string
	host     string
	port     int
}

// ConnectionOption overrides one of the env-derived connection parameters
type ConnectionOption func(params *connectionParams)

func WithUser(user string) ConnectionOption {
	return func(params *connectionParams) {
		params.user = user
	}
}

func WithPassword(password string) ConnectionOption {
	return func(params *connectionParams) {
		params.password = password
	}
}

func WithDBName(dbname string) ConnectionOption {
	return func(params *connectionParams) {
		params.dbname = dbname
	}
}

func WithHost(host string) ConnectionOption {
	return func(params *connectionParams) {
		params.host = host
	}
}

func WithPort(port int) ConnectionOption {
	return func(params *connectionParams) {
		params.port = port
	}
}

func newConnectionParams() connectionParams {
	return connectionParams{
		user:     env.GetString("POSTGRES_USER"),
		password: env.GetString("POSTGRES_PASSWORD"),
		dbname:   env.GetString("POSTGRES_DB"),
		host:     env.GetString("POSTGRES_HOST"),
		port:     env.GetInt("POSTGRES_PORT"),
	}
}

func (c connectionParams) toConnectionString() string {
	port := c.port
	if port == 0 {
		port = 5432
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", c.host, port, c.user, c.dbname)
	if c.password != "" {
		connStr += fmt.Sprintf(" password=%s", c.password)
	}
	return connStr
}

// NewClient creates a new database/sql postgres client
func NewClient(opts ...ConnectionOption) (*sql.DB, error) {
	params := newConnectionParams()
	for _, opt := range opts {
		opt(&params)
	}

	db, err := sql.Open("postgres", params.toConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// MustCreateClient panics when the client can't be created; used at startup
// where there is nothing sensible to do without a database.
func MustCreateClient(opts ...ConnectionOption) *sql.DB {
	db, err := NewClient(opts...)
	if err != nil {
		panic(fmt.Errorf("failed to create postgres client: %w", err))
	}
	return db
}

// NewPgxClient creates a new pgx connection pool
func NewPgxClient(opts ...ConnectionOption) *pgxpool.Pool {
	params := newConnectionParams()
	for _, opt := range opts {
		opt(&params)
	}

	config, err := pgxpool.ParseConfig(params.toConnectionString())
	if err != nil {
		panic(fmt.Errorf("failed to parse pgx config: %w", err))
	}
	config.MaxConns = 50

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		panic(fmt.Errorf("failed to create pgx pool: %w", err))
	}

	return pool
}

func checkNoErr(err error) {
	if err != nil {
		logger.For(nil).WithError(err).Error("failed to prepare statement")
		panic(err)
	}
}
