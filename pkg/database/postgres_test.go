package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/rewards-ledger-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "ledger", Password: "pw", Name: "rewards", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=ledger password=pw dbname=rewards sslmode=require", dsn)
}
