package types

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

type Environment struct {
	RedisClient *redis.Client
	TaskClient  *asynq.Client
	S3Uploader  *manager.Uploader
	Cron        *cron.Cron
}

func NewEnvironment(redisClient *redis.Client) *Environment {

	cr := cron.New()
	return &Environment{
		RedisClient: redisClient,
		Cron:        cr,
	}
}

func (e *Environment) AddS3Uploader(uploader *manager.Uploader) {
	e.S3Uploader = uploader
}
