package config

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

type PersistenceType = string

const (
	PersistenceTypeMemory  PersistenceType = "memory"
	PersistenceTypeRedis   PersistenceType = "redis"
	PersistenceTypeMongo   PersistenceType = "mongo"
	PersistenceTypeLevelDB PersistenceType = "leveldb"
)

var (
	// DefaultPersistenceConfig is the default value of Persistence
	DefaultPersistenceConfig = Persistence{
		Type: PersistenceTypeMemory,
		Redis: RedisPersistence{
			Addr:        "127.0.0.1:6379",
			Password:    "",
			Database:    0,
			MaxIdle:     1000,
			MaxActive:   0,
			IdleTimeout: 240 * time.Second,
		},
		Mongo: MongoPersistence{
			URI:            "mongodb://127.0.0.1:27017",
			Database:       "pushstore",
			ConnectTimeout: 10 * time.Second,
		},
		LevelDB: LevelDBPersistence{
			Path: "data/pushstore",
		},
	}
)

// Persistence is the config of backend persistence.
type Persistence struct {
	// Type is the persistence type.
	// If empty, use "memory" as default.
	Type PersistenceType `yaml:"type"`
	// Redis is the redis configuration and must be set when Type == "redis".
	Redis RedisPersistence `yaml:"redis"`
	// Mongo is the mongodb configuration and must be set when Type == "mongo".
	Mongo MongoPersistence `yaml:"mongo"`
	// LevelDB is the leveldb configuration and must be set when Type == "leveldb".
	LevelDB LevelDBPersistence `yaml:"leveldb"`
}

// RedisPersistence is the configuration of redis persistence.
type RedisPersistence struct {
	// Addr is the redis server address.
	// If empty, use "127.0.0.1:6379" as default.
	Addr string `yaml:"addr"`
	// Password is the redis password.
	Password string `yaml:"password"`
	// Database is the number of the redis database to be connected.
	Database uint `yaml:"database"`
	// MaxIdle is the maximum number of idle connections in the pool.
	// This value will pass to redis.Pool.MaxIdle.
	MaxIdle uint `yaml:"max_idle"`
	// MaxActive is the maximum number of connections allocated by the pool at a given time.
	// If zero, there is no limit on the number of connections in the pool.
	// This value will pass to redis.Pool.MaxActive.
	MaxActive uint `yaml:"max_active"`
	// Close connections after remaining idle for this duration. If the value
	// is zero, then idle connections are not closed.
	// This value will pass to redis.Pool.IdleTimeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// MongoPersistence is the configuration of mongodb persistence.
type MongoPersistence struct {
	// URI is the mongodb connection string.
	URI string `yaml:"uri"`
	// Database is the database that holds the store collections.
	Database string `yaml:"database"`
	// ConnectTimeout bounds Open.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LevelDBPersistence is the configuration of leveldb persistence.
type LevelDBPersistence struct {
	// Path is the database directory.
	Path string `yaml:"path"`
	// InMemory keeps the database in memory, Path is ignored. Used by tests.
	InMemory bool `yaml:"in_memory"`
}

func (p *Persistence) Validate() error {
	switch p.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeRedis:
		_, _, err := net.SplitHostPort(p.Redis.Addr)
		if err != nil {
			return errors.Wrap(err, "invalid redis addr")
		}
	case PersistenceTypeMongo:
		if p.Mongo.URI == "" {
			return errors.New("mongo uri cannot be empty")
		}
		if p.Mongo.Database == "" {
			return errors.New("mongo database cannot be empty")
		}
	case PersistenceTypeLevelDB:
		if p.LevelDB.Path == "" && !p.LevelDB.InMemory {
			return errors.New("leveldb path cannot be empty")
		}
	default:
		return errors.Errorf("invalid persistence type: %s", p.Type)
	}
	return nil
}
