// Package storage picks the repository backend named by STORAGE_DRIVER.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_market/internal/domain"
	"travel_market/internal/shared"
	"travel_market/internal/storage/memory"
	mongorepo "travel_market/internal/storage/mongo"
	mysqlrepo "travel_market/internal/storage/mysql"
)

// Open connects the configured backend. The returned closer releases it.
func Open(ctx context.Context, cfg shared.Config) (domain.Store, func(), error) {
	switch cfg.StorageDriver {
	case "mysql", "":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Str("driver", "mysql").Msg("database connection ok")
		return mysqlrepo.New(db), func() { _ = db.Close() }, nil

	case "mongo", "mongodb":
		st, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("driver", "mongo").Str("db", cfg.MongoDB).Msg("database connection ok")
		return st, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = st.Close(cctx)
		}, nil

	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
}
