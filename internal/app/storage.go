package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/briefs-backend/internal/clients/redis"
	"github.com/yungbote/briefs-backend/internal/data/db"
	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/data/store"
	"github.com/yungbote/briefs-backend/internal/data/store/memstore"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// Storage is everything InFamily needs: the database (nil for the memory driver), the lock
// backend and the store built over them.
type Storage struct {
	DB     *gorm.DB
	Redis  *goredis.Client
	Locker familylock.Locker
	Store  versioning.Store
	Repos  Repos
}

func openDatabase(log *logger.Logger, cfg DBConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pg, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	case DriverSQLite:
		lite, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return lite.DB(), nil
	default:
		return nil, nil
	}
}

func wireLocker(log *logger.Logger, cfg Config) (familylock.Locker, *goredis.Client, error) {
	switch backend := cfg.LockBackend(); backend {
	case LockPostgres:
		return familylock.NewPostgres(familylock.DefaultNamespace), nil, nil
	case LockRedis:
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		l, err := familylock.NewRedis(rdb, familylock.DefaultNamespace, cfg.Lock.TTL)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return l, rdb, nil
	case LockLocal:
		if cfg.DB.Driver == DriverPostgres {
			log.Warn("LOCK_BACKEND=local with postgres only serializes families inside this process")
		}
		return familylock.NewLocal(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", backend)
	}
}

func wireStorage(log *logger.Logger, cfg Config) (*Storage, error) {
	theDB, err := openDatabase(log, cfg.DB)
	if err != nil {
		return nil, err
	}
	if theDB != nil {
		if err := db.AutoMigrateAll(theDB); err != nil {
			closeDB(theDB)
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	locker, rdb, err := wireLocker(log, cfg)
	if err != nil {
		closeDB(theDB)
		return nil, fmt.Errorf("init family lock: %w", err)
	}
	log.Info("Family lock ready", "backend", locker.Name(), "max_wait", cfg.Lock.MaxWait)

	st := &Storage{DB: theDB, Redis: rdb, Locker: locker}
	if theDB == nil {
		log.Warn("Using in-memory store; data is lost on exit")
		st.Store = memstore.New(locker, cfg.Lock.Policy())
		return st, nil
	}
	st.Repos = wireRepos(theDB, log)
	st.Store = store.New(theDB, log, st.Repos.BriefVersion, locker, cfg.Lock.Policy())
	return st, nil
}

// Ping checks the database and, when used, Redis.
func (s *Storage) Ping(ctx context.Context) error {
	if s.DB != nil {
		sqlDB, err := s.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping: %w", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	closeDB(s.DB)
}

func closeDB(g *gorm.DB) {
	if g == nil {
		return
	}
	if sqlDB, err := g.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
