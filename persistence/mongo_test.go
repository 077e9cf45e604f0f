package persistence

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/DrmagicE/pushstore/config"
)

// TestMongo runs against the mongodb at PUSHSTORE_MONGO_URI in a fresh database.
func TestMongo(t *testing.T) {
	uri := os.Getenv("PUSHSTORE_MONGO_URI")
	if uri == "" {
		t.Skip("PUSHSTORE_MONGO_URI not set")
	}
	cfg := config.DefaultConfig()
	cfg.Persistence.Type = config.PersistenceTypeMongo
	cfg.Persistence.Mongo.URI = uri
	cfg.Persistence.Mongo.Database = "pushstore_test_" + uuid.NewString()[:8]
	suite.Run(t, &BackendSuite{
		config: cfg,
	})
}
