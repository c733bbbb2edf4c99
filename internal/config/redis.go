package config

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	Ctx   = context.Background()
	Redis *redis.Client
)

func InitRedis() {
	db := GetEnvInt("REDIS_DB", 0)

	Redis = redis.NewClient(&redis.Options{
		Addr:     GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	})

	if err := Redis.Ping(Ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis not reachable")
	}

	log.Info().Int("db", db).Msg("Redis connected")
}

func CloseRedis() {
	if Redis != nil {
		_ = Redis.Close()
	}
}
