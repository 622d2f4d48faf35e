package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Options{User: "parking", Pass: "s3cret", Host: "db", Port: "3306", Name: "parking"})

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "parking", c.User)
	assert.Equal(t, "s3cret", c.Passwd)
	assert.Equal(t, "tcp", c.Net)
	assert.Equal(t, "db:3306", c.Addr)
	assert.Equal(t, "parking", c.DBName)
	assert.True(t, c.ParseTime)
	assert.Equal(t, time.UTC, c.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
