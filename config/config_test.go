package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	redisConfig := DefaultConfig()
	redisConfig.Log.Level = "debug"
	redisConfig.Persistence.Type = PersistenceTypeRedis
	redisConfig.Persistence.Redis.Addr = "10.0.0.1:6379"
	redisConfig.Persistence.Redis.Password = "secret"
	redisConfig.Persistence.Redis.Database = 2
	redisConfig.Persistence.Redis.IdleTimeout = 60 * time.Second
	redisConfig.Queue = Queue{
		MaxQueuedMsg: 50,
		Policy:       QueuePolicyDropOldest,
	}
	redisConfig.Metrics.ListenAddress = "tcp://127.0.0.1:9100"

	levelConfig := DefaultConfig()
	levelConfig.Persistence.Type = PersistenceTypeLevelDB
	levelConfig.Persistence.LevelDB.Path = "/var/lib/pushstore"

	var tt = []struct {
		caseName string
		fileName string
		hasErr   bool
		expected Config
	}{
		{
			caseName: "defaultConfig",
			fileName: "",
			hasErr:   false,
			expected: DefaultConfig(),
		},
		{
			caseName: "redis",
			fileName: "./testdata/config.yml",
			expected: redisConfig,
		},
		{
			caseName: "leveldb",
			fileName: "./testdata/leveldb.yml",
			expected: levelConfig,
		},
		{
			caseName: "invalidPolicy",
			fileName: "./testdata/invalid_policy.yml",
			hasErr:   true,
			expected: Config{},
		},
		{
			caseName: "invalidType",
			fileName: "./testdata/invalid_type.yml",
			hasErr:   true,
			expected: Config{},
		},
		{
			caseName: "invalidMetrics",
			fileName: "./testdata/invalid_metrics.yml",
			hasErr:   true,
			expected: Config{},
		},
	}

	for _, v := range tt {
		t.Run(v.caseName, func(t *testing.T) {
			a := assert.New(t)
			c, err := ParseConfig(v.fileName)
			if v.hasErr {
				a.NotNil(err)
			} else {
				a.Nil(err)
			}
			a.Equal(v.expected, c)
		})
	}
}

func TestParseConfig_NotExist(t *testing.T) {
	_, err := ParseConfig("./testdata/not_exist.yml")
	assert.NotNil(t, err)
}

func TestQueue_Validate(t *testing.T) {
	a := assert.New(t)
	a.Nil(Queue{MaxQueuedMsg: 0, Policy: QueuePolicyReject}.Validate())
	a.NotNil(Queue{MaxQueuedMsg: -1, Policy: QueuePolicyReject}.Validate())
	a.NotNil(Queue{MaxQueuedMsg: 1}.Validate())
}

func TestPersistence_Validate(t *testing.T) {
	a := assert.New(t)
	p := DefaultPersistenceConfig
	p.Type = PersistenceTypeRedis
	p.Redis.Addr = "no-port"
	a.NotNil(p.Validate())

	p = DefaultPersistenceConfig
	p.Type = PersistenceTypeMongo
	p.Mongo.Database = ""
	a.NotNil(p.Validate())

	p = DefaultPersistenceConfig
	p.Type = PersistenceTypeLevelDB
	p.LevelDB.Path = ""
	a.NotNil(p.Validate())
	p.LevelDB.InMemory = true
	a.Nil(p.Validate())
}

func TestMetrics_Network(t *testing.T) {
	a := assert.New(t)
	var tt = []struct {
		address string
		network string
		addr    string
		valid   bool
	}{
		{address: ":8082", network: "tcp", addr: ":8082", valid: true},
		{address: "tcp://127.0.0.1:8082", network: "tcp", addr: "127.0.0.1:8082", valid: true},
		{address: "unix:///var/run/pushstore.sock", network: "unix", addr: "/var/run/pushstore.sock", valid: true},
		{address: "udp://:8082", network: "udp", addr: ":8082", valid: false},
		{address: "127.0.0.1", network: "tcp", addr: "127.0.0.1", valid: false},
	}
	for _, v := range tt {
		m := Metrics{ListenAddress: v.address, Path: "/metrics"}
		network, addr := m.Network()
		a.Equal(v.network, network, v.address)
		a.Equal(v.addr, addr, v.address)
		if v.valid {
			a.Nil(m.Validate(), v.address)
		} else {
			a.NotNil(m.Validate(), v.address)
		}
	}
	a.NotNil(Metrics{ListenAddress: ":8082", Path: "metrics"}.Validate())
}

func TestConfig_GetLogger(t *testing.T) {
	a := assert.New(t)
	c := DefaultConfig()
	l, err := c.GetLogger(c.Log)
	a.Nil(err)
	a.NotNil(l)
	_, err = c.GetLogger(LogConfig{Level: "verbose"})
	a.NotNil(err)
}
