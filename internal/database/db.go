package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes how to reach MySQL and size the pool.
type Options struct {
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// DSN renders the driver connection string.  Times are parsed into
// time.Time and kept in UTC so hold expiries compare consistently.
func (o Options) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnLifetime <= 0 {
		o.ConnLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnLifetime)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
