package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/hibiken/asynq"
	cfg "github.com/mailio/go-web3-kit/config"
	w3srv "github.com/mailio/go-web3-kit/gingonic"
	"github.com/quresis/go-quresis-server/api/interceptors"
	"github.com/quresis/go-quresis-server/apiroutes"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/queue"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"
)

func initRedisRateLimiter(conf global.Config) *redis.Client {
	redisRateLimitClient := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Host + ":" + strconv.Itoa(conf.Redis.Port),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       1,
	})

	// configure rate limiting
	// clears all data in the Redis database associated with the 'redisRateLimitClient' ignoring potential errors
	rCtx, rCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer rCancel()

	_ = redisRateLimitClient.FlushDB(rCtx).Err()

	limiter := redis_rate.NewLimiter(redisRateLimitClient)
	global.RateLimiter = limiter

	return redisRateLimitClient
}

// calculates the retry delay using exponential backoff
// Here, baseDelay is the initial delay, and maxDelay caps the delay duration
func asyncRetryDelayFunc(attempt int, err error, t *asynq.Task) time.Duration {
	baseDelay := 10 * time.Second
	maxDelay := 10 * time.Minute

	delay := baseDelay * time.Duration(1<<attempt) // Double the delay with each retry
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}

// initalizes the async queue that persists and archives emitted events
func initAsyncQueue(dbSelector repository.DBSelector, env *types.Environment) (*asynq.Server, *asynq.Client) {
	queueRedisClient := asynq.RedisClientOpt{
		Addr:     global.Conf.Redis.Host + ":" + strconv.Itoa(global.Conf.Redis.Port),
		Username: global.Conf.Redis.Username,
		Password: global.Conf.Redis.Password,
		DB:       2,
	}

	logLevel := asynq.InfoLevel
	if global.Conf.Mode != "debug" {
		logLevel = asynq.WarnLevel
	}
	concurrency := 20
	if global.Conf.Queue.Concurrency > 0 {
		concurrency = global.Conf.Queue.Concurrency
	}

	taskClient := asynq.NewClient(queueRedisClient)
	// start a task queue server
	taskServer := asynq.NewServer(
		queueRedisClient,
		asynq.Config{
			Concurrency:    concurrency,
			LogLevel:       logLevel,
			RetryDelayFunc: asyncRetryDelayFunc, // overriding the default retry delay function
		},
	)

	eventQueue := queue.NewEventQueue(services.NewEventService(dbSelector), ConfigArchiveService(&global.Conf, env))
	// start a task processing server
	mux := asynq.NewServeMux()
	mux.HandleFunc(types.QueueTypeEventPublish, eventQueue.ProcessEventTask)

	if err := taskServer.Start(mux); err != nil {
		log.Fatalf("could not start server: %v", err)
	}
	return taskServer, taskClient
}

// @title Quresis Server API
// @version 1.0
// @description Post-quantum identity registry and transfer hook policy engine
// @SecurityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default:  current dir with  filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	err := cfg.NewYamlConfig(configFile, &global.Conf)
	if err != nil {
		level.Error(global.Logger).Log("msg", "conf.yaml failed to load", "err", err)
		panic("Failed to load conf.yaml")
	}
	global.ConfigureLogLevel(global.Conf.Mode)

	// redis backs rate limiting, the lock service and the event queue; without it the
	// server runs single instance with local limiter and lock
	var rrClient *redis.Client
	if global.Conf.Redis.Host != "" {
		rrClient = initRedisRateLimiter(global.Conf)
		defer rrClient.Close()
	}

	env := types.NewEnvironment(rrClient)
	defer env.Cron.Stop()

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	stop := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt)
	signal.Notify(stop, os.Interrupt, unix.SIGTSTP)

	// init routing (for RESTful API endpoints)
	router := w3srv.NewAPIRouter(&global.Conf.YamlConfig)

	dbSelector := ConfigDBSelector()
	ConfigDBIndexing(dbSelector)

	// configure S3 storage for the event archive
	if global.Conf.Quresis.EventArchive {
		ConfigS3Storage(&global.Conf, env)
	}

	// initialize the async queue
	var taskServer *asynq.Server
	if rrClient != nil {
		var taskClient *asynq.Client
		taskServer, taskClient = initAsyncQueue(dbSelector, env)
		defer taskClient.Close()
		env.TaskClient = taskClient
	}

	deps, cleanup, depsErr := ConfigGuardDependencies(&global.Conf, dbSelector, env)
	if depsErr != nil {
		level.Error(global.Logger).Log("msg", "invalid quresis configuration", "err", depsErr)
		panic(depsErr)
	}
	defer cleanup()

	limiter, limErr := interceptors.NewRateLimiter(global.Conf.Quresis.RateLimit)
	if limErr != nil {
		panic(limErr)
	}

	ConfigStatisticsRefresh(&global.Conf, deps, env)

	// configure routes
	router = apiroutes.ConfigRoutes(router, deps, limiter)

	// start server
	srv := w3srv.Start(&global.Conf.YamlConfig, router)
	// wait for server shutdown
	go w3srv.Shutdown(srv, quit, done)

	// stop the async queue server
	if taskServer != nil {
		go func() {
			for {
				s := <-stop
				fmt.Printf("shutting down task queue server")
				if s == unix.SIGTSTP {
					taskServer.Stop() // Stop processing new tasks
					continue
				}
				break
			}
			taskServer.Shutdown()
		}()
	}

	level.Info(global.Logger).Log("msg", "server is ready to handle requests", "port", global.Conf.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done

}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: quresis-server [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
