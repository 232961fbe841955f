package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
	"github.com/mutchinick/ai-workflow-architect-sub001/llm"
	"github.com/mutchinick/ai-workflow-architect-sub001/storage"
)

type eventLog interface {
	PublishEvent(ctx context.Context, ev *domain.Event) error
	EnqueueEvent(ctx context.Context, ev *domain.Event) error
}

type progressNotifier interface {
	StepProcessed(ctx context.Context, workflowID, objectKey string)
	Completed(ctx context.Context, workflowID, objectKey string, succeeded bool)
}

// eventSink publishes an event to the log and forwards it on the events
// queue, standing in for the log's change feed. A duplicate publish still
// forwards the envelope: the event is durably recorded and downstream
// consumers dedupe through their own conditional writes. Progress is
// notified here, at publication, so the latest recorded key always names
// the snapshot the publishing service just wrote.
type eventSink struct {
	store  eventLog
	notify progressNotifier
}

func (s eventSink) PublishEvent(ctx context.Context, ev *domain.Event) error {
	pubErr := s.store.PublishEvent(ctx, ev)
	if pubErr != nil && !domain.IsKind(pubErr, domain.ErrDuplicateEvent) {
		return pubErr
	}
	if err := s.store.EnqueueEvent(ctx, ev); err != nil {
		return err
	}
	s.notifyProgress(ctx, ev)
	return pubErr
}

func (s eventSink) notifyProgress(ctx context.Context, ev *domain.Event) {
	if s.notify == nil {
		return
	}
	switch ev.Name {
	case domain.WorkflowStepProcessed:
		var data domain.WorkflowStepProcessedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		s.notify.StepProcessed(ctx, data.WorkflowID, data.ObjectKey)
	case domain.WorkflowCompleted:
		var data domain.WorkflowCompletedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			return
		}
		s.notify.Completed(ctx, data.WorkflowID, data.ObjectKey, data.Succeeded)
	}
}

func main() {
	log.Println("Workflow Worker Service starting")
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	eventsTable := os.Getenv("WORKFLOW_EVENTS_TABLE")
	snapshotsTable := os.Getenv("WORKFLOW_SNAPSHOTS_TABLE")
	eventsQueue := os.Getenv("WORKFLOW_EVENTS_QUEUE")
	if connStr == "" || eventsTable == "" || snapshotsTable == "" || eventsQueue == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, eventsTable, snapshotsTable, eventsQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(parseRedisOptions(redisConn))

	llmClient, err := llm.New(os.Getenv("LLM_BASE_URL"), os.Getenv("LLM_API_KEY"), os.Getenv("LLM_MODEL"))
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}

	if on, err := strconv.ParseBool(os.Getenv("TRACE_STDOUT")); err == nil && on {
		shutdown, err := initTracer("workflow-worker")
		if err != nil {
			log.Fatalf("tracing: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.WithError(err).Error("tracer shutdown failed")
			}
		}()
	}

	notif := newNotifier(rc, envDur("PROGRESS_KEY_TTL", 24*time.Hour))
	sink := eventSink{store: store, notify: notif}
	deploy := domain.NewDeployService(store, sink, domain.DefaultRoster(), domain.DefaultFirstResponder())
	process := domain.NewProcessStepService(store, sink, llmClient)
	orch := domain.NewOrchestrator(deploy, process)
	proc := newProcessor(orch, store)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	registerRoutes(e, store, notif)
	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}
	go func() {
		if err := e.Start(listenAddr); err != nil {
			log.WithError(err).Error("http server stopped")
		}
	}()

	batchSize := int32(envInt("BATCH_SIZE", 16))
	idleDelay := envDur("IDLE_DELAY", time.Second)

	ctx := context.Background()
	for {
		msgs, err := store.DequeueBatch(ctx, batchSize)
		if err != nil {
			log.WithError(err).Error("dequeue failed")
			time.Sleep(idleDelay)
			continue
		}
		if len(msgs) == 0 {
			time.Sleep(idleDelay)
			continue
		}
		resp := proc.ProcessBatch(ctx, msgs)
		if len(resp.FailedMessageIDs) > 0 {
			log.WithField("failed", len(resp.FailedMessageIDs)).Warn("batch finished with transient failures")
		}
	}
}

// parseRedisOptions accepts either a redis URL or an Azure-style
// "host:port,password=...,ssl=true" connection string.
func parseRedisOptions(redisConn string) *redis.Options {
	opts, err := redis.ParseURL(redisConn)
	if err == nil {
		return opts
	}
	parts := strings.Split(redisConn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return n
}

func envDur(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return d
}
