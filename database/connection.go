// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql" // MariaDB/MySQL driver

	"github.com/ibis-project/ibis-examples/config"
)

// Store is the artifact ledger backed by MySQL.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an already opened database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// DSN builds the driver DSN from the database section of the config.
func DSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Open initializes the connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database: Successfully connected to the artifact ledger.")
	return NewStore(db), nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s != nil && s.DB != nil {
		s.DB.Close()
		log.Println("Database: Connection closed.")
	}
}
