// Package database opens the pooled MySQL handle shared by all repositories.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options locates the database and sizes the pool.
type Options struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the driver DSN.  parseTime maps DATETIME to time.Time and
// loc=UTC keeps every stored timestamp in UTC.
func DSN(o Options) string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, o.Port)
	c.DBName = o.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(o))
	if err != nil {
		return nil, err
	}

	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxOpenConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
