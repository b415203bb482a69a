// Package global carries process-wide configuration and the bootstrap
// helpers main wires together. Every knob has a default suitable for
// local development and an environment override for deployment.
package global

import (
	"os"
	"strconv"
	"time"

	"ChatSync/data/mongoutil"
	storeredis "ChatSync/store/redis"
	"ChatSync/tools/ids"
	"ChatSync/tools/security"
)

type AppConfig struct {
	NodeID string
	Port   int

	JWTSecret string
	JWTTTL    time.Duration

	PingInterval time.Duration
	PongWait     time.Duration
	PresenceTTL  time.Duration

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string
}

func Load() *AppConfig {
	return &AppConfig{
		NodeID: env("CHATSYNC_NODE_ID", "gateway-1"),
		Port:   envInt("CHATSYNC_PORT", 8080),

		JWTSecret: env("CHATSYNC_JWT_SECRET", "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="),
		JWTTTL:    envDuration("CHATSYNC_JWT_TTL", 24*time.Hour),

		PingInterval: envDuration("CHATSYNC_PING_INTERVAL", 25*time.Second),
		PongWait:     envDuration("CHATSYNC_PONG_WAIT", 60*time.Second),
		PresenceTTL:  envDuration("CHATSYNC_PRESENCE_TTL", 90*time.Second),

		MongoURI:      env("CHATSYNC_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: env("CHATSYNC_MONGO_DB", "chatsync"),

		RedisAddr:     env("CHATSYNC_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: env("CHATSYNC_REDIS_PASSWORD", ""),
		RedisDB:       envInt("CHATSYNC_REDIS_DB", 0),

		NatsURL: env("CHATSYNC_NATS_URL", ""),
	}
}

func (c *AppConfig) JWTOptions() security.Options {
	return security.Options{Secret: []byte(c.JWTSecret), TTL: c.JWTTTL}
}

func (c *AppConfig) MongoConfig() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         c.MongoURI,
		Database:    c.MongoDatabase,
		MaxPoolSize: 20,
		MaxRetry:    3,
	}
}

func (c *AppConfig) RedisConfig() storeredis.Config {
	return storeredis.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// ConfigIds seeds the snowflake node so IDs stay unique across peers.
func ConfigIds(nodeID string) {
	h := 0
	for _, r := range nodeID {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	ids.SetNodeID(int64(h % 1024))
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
