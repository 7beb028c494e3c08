// Command radix-worker runs homomorphic radix computation workers: jobs
// arrive on a Redis queue referencing ciphertexts by storage handle, the
// worker computes and stores the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/radix"
	"github.com/luxfi/radix/internal/queue"
	"github.com/luxfi/radix/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		numWorkers  = flag.Int("workers", 4, "number of worker goroutines")
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storagePath = flag.String("storage", "/tmp/radix-storage", "ciphertext storage path")
		bskPath     = flag.String("bootstrap-key", "", "serialized bootstrap key; empty generates a throwaway key")
		metricsAddr = flag.String("metrics", ":9090", "metrics server address")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("radix worker starting",
		zap.Int("workers", *numWorkers),
		zap.String("redis", *redisAddr),
		zap.String("storage", *storagePath),
		zap.String("metrics", *metricsAddr),
	)

	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	store, err := storage.NewFileStorage(*storagePath)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	lp, err := radix.NewLatticeParametersFromLiteral(radix.PN11QP54)
	if err != nil {
		return fmt.Errorf("create lattice parameters: %w", err)
	}

	var bsk *radix.BootstrapKey
	if *bskPath != "" {
		data, err := os.ReadFile(*bskPath)
		if err != nil {
			return fmt.Errorf("read bootstrap key: %w", err)
		}
		bsk = new(radix.BootstrapKey)
		if err := bsk.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("parse bootstrap key: %w", err)
		}
	} else {
		// Without a client bootstrap key the worker can only serve
		// ciphertexts it encrypted itself; useful for smoke testing only.
		logger.Warn("no bootstrap key given, generating a throwaway key")
		kgen := radix.NewKeyGenerator(lp)
		bsk = kgen.GenBootstrapKey(kgen.GenSecretKey())
	}

	engine, err := radix.NewLatticeEngine(lp, radix.DefaultParameters, bsk)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	ev := radix.NewEvaluator(engine)

	pool := &WorkerPool{
		numWorkers: *numWorkers,
		queue:      q,
		storage:    store,
		evaluator:  ev,
		logger:     logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# HELP radix_operations_total Total radix operations\n")
		fmt.Fprintf(w, "# TYPE radix_operations_total counter\n")
		fmt.Fprintf(w, "radix_operations_total{status=\"success\"} %d\n", pool.successCount.Load())
		fmt.Fprintf(w, "radix_operations_total{status=\"failure\"} %d\n", pool.failureCount.Load())
	})

	server := &http.Server{
		Addr:    *metricsAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("metrics server starting", zap.String("addr", *metricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
	if err := pool.Stop(); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// WorkerPool manages a pool of radix computation workers sharing one
// evaluator.
type WorkerPool struct {
	numWorkers   int
	queue        queue.Queue
	storage      storage.Storage
	evaluator    *radix.Evaluator
	logger       *zap.Logger
	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// Start starts the worker pool.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.running.Load() {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	p.logger.Info("starting workers", zap.Int("count", p.numWorkers))

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	return nil
}

// Stop gracefully stops the worker pool.
func (p *WorkerPool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(30 * time.Second):
		p.logger.Warn("shutdown timeout exceeded")
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.With(zap.Int("worker", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("failed to pop job", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		p.processJob(ctx, log, job)
	}
}

func (p *WorkerPool) fail(ctx context.Context, job *queue.Job, format string, args ...any) {
	job.Status = queue.StatusFailed
	job.Error = fmt.Sprintf(format, args...)
	p.queue.Update(ctx, job)
	p.failureCount.Add(1)
}

func (p *WorkerPool) processJob(ctx context.Context, log *zap.Logger, job *queue.Job) {
	log.Info("processing job",
		zap.String("id", job.ID),
		zap.Uint8("op", uint8(job.Operation)),
		zap.Int("terms", len(job.TermHandles)),
	)

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Error("failed to update job status", zap.Error(err))
	}

	terms := make([]*radix.RadixCiphertext, len(job.TermHandles))
	for i, h := range job.TermHandles {
		data, err := p.storage.Load(ctx, storage.Handle(h))
		if err != nil {
			p.fail(ctx, job, "load term %d: %v", i, err)
			return
		}
		terms[i] = new(radix.RadixCiphertext)
		if err := terms[i].UnmarshalBinary(data); err != nil {
			p.fail(ctx, job, "unmarshal term %d: %v", i, err)
			return
		}
	}

	var (
		result *radix.RadixCiphertext
		flag   *radix.BooleanBlock
		err    error
	)
	switch job.Operation {
	case queue.OpAdd:
		if len(terms) != 2 {
			p.fail(ctx, job, "add needs 2 terms, got %d", len(terms))
			return
		}
		result, err = radix.Add(p.evaluator, terms[0], terms[1])
	case queue.OpSum:
		if len(terms) == 0 {
			p.fail(ctx, job, "sum needs at least 1 term")
			return
		}
		result, err = radix.SmartSum(p.evaluator, terms)
	case queue.OpOverflowingSum:
		if len(terms) == 0 {
			p.fail(ctx, job, "overflowing sum needs at least 1 term")
			return
		}
		result, flag, err = p.evaluator.SmartUnsignedOverflowingSum(terms)
	case queue.OpPropagate:
		if len(terms) != 1 {
			p.fail(ctx, job, "propagate needs 1 term, got %d", len(terms))
			return
		}
		result, err = radix.FullPropagate(p.evaluator, terms[0])
	default:
		p.fail(ctx, job, "unsupported operation: %d", job.Operation)
		return
	}
	if err != nil {
		p.fail(ctx, job, "compute: %v", err)
		return
	}

	resultData, err := result.MarshalBinary()
	if err != nil {
		p.fail(ctx, job, "marshal result: %v", err)
		return
	}
	handle, err := p.storage.Store(ctx, resultData)
	if err != nil {
		p.fail(ctx, job, "store result: %v", err)
		return
	}
	job.ResultHandle = string(handle)

	if flag != nil {
		flagData, err := flag.MarshalBinary()
		if err != nil {
			p.fail(ctx, job, "marshal flag: %v", err)
			return
		}
		flagHandle, err := p.storage.Store(ctx, flagData)
		if err != nil {
			p.fail(ctx, job, "store flag: %v", err)
			return
		}
		job.FlagHandle = string(flagHandle)
	}

	job.Status = queue.StatusCompleted
	if err := p.queue.Update(ctx, job); err != nil {
		log.Error("failed to update job result", zap.Error(err))
	}

	p.successCount.Add(1)
	log.Info("job completed", zap.String("id", job.ID))
}
