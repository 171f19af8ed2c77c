package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"peatracker/internal/amqp"
	"peatracker/internal/store"
)

// Replicator forwards local changes to the remote store of a user.
// Replicate never blocks on the remote and never reports failures to the
// caller: the local write already succeeded.
type Replicator interface {
	Replicate(ctx context.Context, userID string, c Change)
}

// NoopReplicator drops every change. Used when replication is disabled.
type NoopReplicator struct{}

func (NoopReplicator) Replicate(context.Context, string, Change) {}

// Publisher publishes replication messages to the broker.
type Publisher interface {
	PublishReplication(ctx context.Context, msg *amqp.ReplicationMessage) error
}

// AMQPReplicator announces changes on the broker. The worker reads the record
// from the local cache and applies it to the remote.
type AMQPReplicator struct {
	publisher Publisher
}

func NewAMQPReplicator(publisher Publisher) *AMQPReplicator {
	return &AMQPReplicator{publisher: publisher}
}

func (r *AMQPReplicator) Replicate(ctx context.Context, userID string, c Change) {
	if userID == "" {
		return
	}
	if r.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping replication message")
		return
	}

	msg := amqp.NewReplicationMessage(userID, c.Collection, c.Operation, c.Key)
	if err := r.publisher.PublishReplication(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish replication message",
			"collection", c.Collection,
			"operation", c.Operation,
			"key", c.Key,
			"error", err)
	}
}

// DirectReplicatorConfig holds configuration for the direct replicator
type DirectReplicatorConfig struct {
	// QueueSize bounds the pending changes; further changes are dropped (default: 256)
	QueueSize int

	// Timeout applies to each remote write (default: 10s)
	Timeout time.Duration
}

// DefaultDirectReplicatorConfig returns sensible defaults
func DefaultDirectReplicatorConfig() DirectReplicatorConfig {
	return DirectReplicatorConfig{
		QueueSize: 256,
		Timeout:   10 * time.Second,
	}
}

type pendingChange struct {
	userID string
	change Change
}

// DirectReplicator applies changes to the remote store from a background
// goroutine, in the order they were replicated.
type DirectReplicator struct {
	remote store.Remote
	config DirectReplicatorConfig
	queue  chan pendingChange

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDirectReplicator(remote store.Remote, config DirectReplicatorConfig) *DirectReplicator {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDirectReplicatorConfig().QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDirectReplicatorConfig().Timeout
	}
	return &DirectReplicator{
		remote: remote,
		config: config,
		queue:  make(chan pendingChange, config.QueueSize),
	}
}

// Replicate queues c for the remote store of userID. Without a user the
// remote leg is skipped.
func (r *DirectReplicator) Replicate(ctx context.Context, userID string, c Change) {
	if userID == "" {
		return
	}
	select {
	case r.queue <- pendingChange{userID: userID, change: c}:
	default:
		slog.WarnContext(ctx, "Replication queue full, dropping change",
			"collection", c.Collection,
			"operation", c.Operation,
			"key", c.Key)
	}
}

// Start begins the processing loop. Returns an error if already running.
func (r *DirectReplicator) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("direct replicator is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Direct replicator started",
		"queue_size", r.config.QueueSize,
		"timeout", r.config.Timeout)
	return nil
}

// Stop drains the queue and waits for the loop to finish.
func (r *DirectReplicator) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Direct replicator stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Direct replicator stop timed out")
		return ctx.Err()
	}
}

func (r *DirectReplicator) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *DirectReplicator) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	for {
		select {
		case p := <-r.queue:
			r.apply(ctx, p)
		case <-r.stopCh:
			r.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *DirectReplicator) drain(ctx context.Context) {
	for {
		select {
		case p := <-r.queue:
			r.apply(ctx, p)
		default:
			return
		}
	}
}

func (r *DirectReplicator) apply(ctx context.Context, p pendingChange) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.Timeout)
	defer cancel()

	if err := ApplyChange(ctx, r.remote.ForUser(p.userID), p.change); err != nil {
		slog.ErrorContext(ctx, "Failed to replicate change",
			"collection", p.change.Collection,
			"operation", p.change.Operation,
			"key", p.change.Key,
			"error", err)
		return
	}
	slog.DebugContext(ctx, "Replicated change",
		"collection", p.change.Collection,
		"operation", p.change.Operation,
		"key", p.change.Key)
}
