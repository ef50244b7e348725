package global

import (
	"github.com/go-redis/redis_rate/v10"
	cfg "github.com/mailio/go-web3-kit/config"
)

// Conf global config
var Conf Config

// Global rate limiter (nil when redis rate limiting is not configured)
var RateLimiter *redis_rate.Limiter

type Config struct {
	cfg.YamlConfig `yaml:",inline"`
	CouchDB        CouchDBConfig    `yaml:"couchdb"`
	Quresis        QuresisConfig    `yaml:"quresis"`
	Prometheus     PrometheusConfig `yaml:"prometheus"`
	Redis          RedisConfig      `yaml:"redis"`
	Queue          Queue            `yaml:"queue"`
	Storage        StorageConfig    `yaml:"storage"`
}

type CouchDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type QuresisConfig struct {
	Oracle            string          `yaml:"oracle"`          // mldsa | placeholder | always
	OracleCacheSize   int             `yaml:"oracleCacheSize"` // parsed ML-DSA keys kept in memory
	DefaultThreshold  uint64          `yaml:"defaultThreshold"`
	MinThreshold      uint64          `yaml:"minThreshold"`
	MaxThreshold      uint64          `yaml:"maxThreshold"`
	MaxMessageSize    int             `yaml:"maxMessageSize"`
	OnMalformedRecord string          `yaml:"onMalformedRecord"` // allow | reject
	StorageBackend    string          `yaml:"storageBackend"`    // couchdb | memory
	LockerBackend     string          `yaml:"lockerBackend"`     // redis | local
	LockTimeoutMs     int             `yaml:"lockTimeoutMs"`
	SlotDurationMs    int             `yaml:"slotDurationMs"`
	Genesis           int64           `yaml:"genesis"` // unix seconds of slot 0
	StatisticsRefresh string          `yaml:"statisticsRefresh"`
	EventArchive      bool            `yaml:"eventArchive"` // archive events to S3 storage
	RateLimit         RateLimitConfig `yaml:"rateLimit"`
	JwsMaxAgeSeconds  int             `yaml:"jwsMaxAgeSeconds"`
}

type RateLimitConfig struct {
	Backend           string `yaml:"backend"` // redis | local
	RequestsPerSecond int    `yaml:"requestsPerSecond"`
	Burst             int    `yaml:"burst"`
	LocalCacheSize    int    `yaml:"localCacheSize"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
}

type Queue struct {
	Concurrency int `yaml:"concurrency"`
}

type StorageConfig struct {
	Type   string `yaml:"type"`
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}
