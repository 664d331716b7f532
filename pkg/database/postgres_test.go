package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/curriculum-planner-api/pkg/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "planner",
		Password: "secret",
		Name:     "curriculum_planner",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=planner password=secret dbname=curriculum_planner sslmode=disable application_name=curriculum-planner", DSN(cfg))

	cfg.ConnectTimeout = 3 * time.Second
	assert.Contains(t, DSN(cfg), " connect_timeout=3")
}
