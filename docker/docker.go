package docker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest"
	dc "github.com/ory/dockertest/docker"

	// register the postgres driver for readiness pings
	_ "github.com/lib/pq"
)

// StartPostgres runs a disposable postgres container and blocks until it
// accepts connections
func StartPostgres() (*dockertest.Resource, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	r, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=",
			"POSTGRES_HOST_AUTH_METHOD=trust",
			"POSTGRES_DB=postgres",
		},
	}, func(config *dc.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = dc.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start postgres: %w", err)
	}

	r.Expire(600)

	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		db, err := sql.Open("postgres", fmt.Sprintf("postgres://postgres@%s/postgres?sslmode=disable", r.GetHostPort("5432/tcp")))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		r.Close()
		return nil, fmt.Errorf("postgres never became ready: %w", err)
	}

	return r, nil
}

// StartRedis runs a disposable redis container and blocks until it accepts
// connections
func StartRedis() (*dockertest.Resource, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	r, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7",
	}, func(config *dc.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = dc.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start redis: %w", err)
	}

	r.Expire(600)

	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: r.GetHostPort("6379/tcp")})
		defer client.Close()
		return client.Ping(client.Context()).Err()
	}); err != nil {
		r.Close()
		return nil, fmt.Errorf("redis never became ready: %w", err)
	}

	return r, nil
}
