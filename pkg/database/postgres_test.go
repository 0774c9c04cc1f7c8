package database

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 54322, User: "authenticator", Password: "secret", Name: "postgres", SSLMode: "require"})
	assert.Equal(t, "postgres://authenticator:secret@db:54322/postgres?sslmode=require", dsn)
}

func TestDSNKeepsAwkwardPasswords(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app user", Password: "it's a p@ss/word", Name: "pickup", SSLMode: "disable"})

	opts, err := pq.ParseURL(dsn)
	require.NoError(t, err)
	assert.Equal(t, `dbname='pickup' host='db' password='it\'s a p@ss/word' port='5432' sslmode='disable' user='app user'`, opts)
}
