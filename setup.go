package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/pqc"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
	"github.com/quresis/go-quresis-server/util"
	"github.com/redis/go-redis/v9"
)

const (
	storageBackendMemory = "memory"
	lockerBackendRedis   = "redis"
)

// Configure DB Repositories and create DB Selector
func ConfigDBSelector() repository.DBSelector {
	dbSelector := repository.NewCouchDBSelector()
	if global.Conf.Quresis.StorageBackend == storageBackendMemory {
		level.Warn(global.Logger).Log("msg", "using in-memory storage, state is lost on restart")
		dbSelector.AddDB(repository.NewMemoryRepository(repository.Identity))
		dbSelector.AddDB(repository.NewMemoryRepository(repository.Hook))
		dbSelector.AddDB(repository.NewMemoryRepository(repository.Event))
		return dbSelector
	}

	// configure Repository (couchDB)
	repoUrl := global.Conf.CouchDB.Scheme + "://" + global.Conf.CouchDB.Host + ":" + strconv.Itoa(global.Conf.CouchDB.Port)
	identityRepo, identityRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Identity, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	hookRepo, hookRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Hook, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	eventRepo, eventRepoErr := repository.NewCouchDBRepository(repoUrl, repository.Event, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)

	repoErr := errors.Join(identityRepoErr, hookRepoErr, eventRepoErr)
	if repoErr != nil {
		level.Error(global.Logger).Log("msg", "failed to create repositories", "err", repoErr)
		panic(repoErr)
	}

	// REPOSITORY definitions
	dbSelector.AddDB(identityRepo)
	dbSelector.AddDB(hookRepo)
	dbSelector.AddDB(eventRepo)

	return dbSelector
}

func ConfigDBIndexing(dbSelector repository.DBSelector) {
	eventRepo, err := dbSelector.ChooseDB(repository.Event)
	if err != nil {
		panic(err)
	}
	if iErr := repository.CreateEventSlotIndex(eventRepo); iErr != nil {
		panic(iErr)
	}
}

func ConfigS3Storage(conf *global.Config, env *types.Environment) {
	// configure S3 storage
	credentials := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.Storage.Key, conf.Storage.Secret, ""))
	awsConf, err := config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(credentials), config.WithRegion(conf.Storage.Region))
	if err != nil {
		panic(err)
	}
	s3Client := s3.NewFromConfig(awsConf)
	uploader := manager.NewUploader(s3Client)
	env.AddS3Uploader(uploader)
}

// ConfigArchiveService returns the event archiver, disabled when no uploader is configured
func ConfigArchiveService(conf *global.Config, env *types.Environment) *services.ArchiveService {
	if env.S3Uploader == nil {
		return services.NewArchiveService(nil, "", "")
	}
	return services.NewArchiveService(env.S3Uploader, conf.Storage.Bucket, conf.Storage.Prefix)
}

func initRedisLockClient(conf global.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Host + ":" + strconv.Itoa(conf.Redis.Port),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       3,
	})
}

// ConfigGuardDependencies builds the collaborators shared by the identity, hook and transfer services
func ConfigGuardDependencies(conf *global.Config, dbSelector repository.DBSelector, env *types.Environment) (*services.Dependencies, func(), error) {
	opts, err := services.GuardOptionsFromConfig(conf.Quresis)
	if err != nil {
		return nil, nil, err
	}
	oracle, err := pqc.NewOracle(conf.Quresis.Oracle, conf.Quresis.OracleCacheSize)
	if err != nil {
		return nil, nil, err
	}
	if conf.Quresis.Oracle == pqc.OracleAlwaysValid && conf.Mode != "debug" {
		return nil, nil, fmt.Errorf("oracle %q is only allowed in debug mode", pqc.OracleAlwaysValid)
	}

	cleanup := func() {}
	var lock locker.Locker
	if conf.Quresis.LockerBackend == lockerBackendRedis {
		if conf.Redis.Host == "" {
			return nil, nil, errors.New("redis locker configured without redis")
		}
		lockClient := initRedisLockClient(*conf)
		// the lease outlives the longest storage round trip of a locked operation
		lock = locker.NewRedisLocker(lockClient, opts.LockTimeout+30*time.Second)
		cleanup = func() { lockClient.Close() }
	} else {
		lock = locker.NewLocalLocker(0)
	}

	sinks := eventlog.MultiSink{eventlog.NewLogSink(global.Logger)}
	if env.TaskClient != nil {
		sinks = append(sinks, eventlog.NewQueueSink(env.TaskClient))
	}

	genesis := time.Unix(conf.Quresis.Genesis, 0)
	if conf.Quresis.Genesis == 0 {
		genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	clock := util.NewSystemClock(genesis, time.Duration(conf.Quresis.SlotDurationMs)*time.Millisecond)

	return &services.Dependencies{
		DBSelector: dbSelector,
		Oracle:     oracle,
		Locker:     lock,
		Events:     sinks,
		Clock:      clock,
		Options:    opts,
	}, cleanup, nil
}

// ConfigStatisticsRefresh exports the hook counters as gauges on a cron schedule
func ConfigStatisticsRefresh(conf *global.Config, deps *services.Dependencies, environment *types.Environment) {
	if !conf.Prometheus.Enabled {
		return
	}
	schedule := strings.TrimSpace(conf.Quresis.StatisticsRefresh)
	if schedule == "" {
		schedule = "@every 1m"
	}
	statisticsService := services.NewStatisticsService(services.NewHookService(deps))
	if _, err := environment.Cron.AddFunc(schedule, statisticsService.RefreshHookGauges); err != nil {
		panic(fmt.Sprintf("invalid statisticsRefresh schedule %q: %v", schedule, err))
	}
	environment.Cron.Start()
	go statisticsService.RefreshHookGauges() // run once on startup
}
