package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/config"
	"github.com/emrgen/suggest/internal/jobs"
	"github.com/emrgen/suggest/internal/notify"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/service"
	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/validator"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server runs the HTTP API, the suggestion workers and the periodic tasks.
type Server struct {
	cfg *config.Config
}

// NewServer creates a new server
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start starts the server and blocks until it receives a stop signal.
func (s *Server) Start() {
	if err := Start(s.cfg); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start wires the stack from cfg and serves until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	db, err := config.GetDb(cfg)
	if err != nil {
		return err
	}

	suggestStore := store.NewGormStore(db)
	if err = suggestStore.Migrate(); err != nil {
		return err
	}

	codec, err := compress.New(cfg.SnapshotCompression)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// closers run in reverse order on shutdown
	var closers []io.Closer

	jobQueue, err := newQueue(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(cfg, &closers)
	if err != nil {
		return err
	}

	suggestions := service.NewSuggestionService(
		codec,
		suggestStore,
		jobQueue,
		newJudge(cfg),
		notifier,
		service.StaticSettings{Cooldown: cfg.Cooldown, Thresholds: cfg.Thresholds},
		service.PipelineConfig{PublicURL: cfg.PublicURL, StoreTimeout: cfg.DBTimeout},
	)
	revisions := service.NewRevisionService(codec, suggestStore, nil)
	documents := service.NewDocumentService(codec, suggestStore)

	pool := jobs.NewPool(jobQueue, suggestions, jobs.PoolConfig{
		Workers:        cfg.WorkerCount,
		MaxAttempts:    cfg.JobMaxAttempts,
		AttemptTimeout: cfg.JobAttemptTimeout,
	})
	pool.Start(ctx)

	executor := jobs.NewTaskExecutor(
		jobs.NewPendingReportTask(suggestStore, cfg.PendingSweepSchedule, cfg.PendingStaleAfter),
		jobs.NewStaleRequeueTask(suggestStore, suggestions, jobQueue, cfg.PendingSweepSchedule, cfg.PendingStaleAfter),
	)
	if err = executor.Run(); err != nil {
		pool.Stop()
		return err
	}

	api := NewAPI(suggestions, revisions, documents, jobQueue)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	httpPort := ":" + cfg.HTTPPort
	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		executor.Stop()
		pool.Stop()
		return err
	}

	restServer := &http.Server{
		Addr:              httpPort,
		Handler:           c.Handler(api.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err = restServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}
	wg.Wait()

	executor.Stop()
	pool.Stop()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logrus.Errorf("error closing resource: %v", err)
		}
	}

	return nil
}

func newQueue(ctx context.Context, cfg *config.Config, closers *[]io.Closer) (queue.Queue, error) {
	if cfg.RedisURL == "" {
		logrus.Warn("REDIS_URL not set, jobs are kept in memory")
		return queue.NewMemoryQueue(1024), nil
	}

	q, err := queue.NewRedisQueueFromURL(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, q)

	return q, nil
}

func newJudge(cfg *config.Config) validator.Validator {
	if cfg.OpenAIKey == "" {
		logrus.Warn("OPENAI_API_KEY not set, every suggestion will be rejected as unvalidated")
		return validator.Func(func(ctx context.Context, req validator.Request) validator.Verdict {
			return validator.Unavailable(errors.New("no validator configured"))
		})
	}

	judge := validator.NewOpenAIValidator(validator.OpenAIConfig{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.ValidatorTimeout,
	})

	return validator.NewThrottled(judge, cfg.ValidatorRPS, 1)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func newNotifier(cfg *config.Config, closers *[]io.Closer) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier()}
	if cfg.KafkaBrokers == "" {
		return notifiers, nil
	}

	kafkaNotifier, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, closerFunc(func() error {
		kafkaNotifier.Close()
		return nil
	}))

	return append(notifiers, kafkaNotifier), nil
}
