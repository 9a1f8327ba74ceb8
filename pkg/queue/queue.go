// Package queue provides a Redis-backed work queue with visibility timeouts
// and per-message receive counts.
//
// A queue named N is stored in three structures:
//
//	N:pending      LIST of message IDs awaiting delivery
//	N:inflight     ZSET of delivered IDs scored by visibility deadline (unix ms)
//	N:msg:{id}     HASH holding the body and the receive count
//
// A delivered message that is not deleted before its visibility deadline
// returns to the pending list on the next receive.
package queue

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clearcase/worker/pkg/lifecycle"
)

// Message is a single delivery of a queued body.
type Message struct {
	ID           string
	Body         []byte
	Receipt      string
	ReceiveCount int
}

// System sends, receives, and deletes queue messages.
type System interface {
	lifecycle.ReadinessChecker
	// Start registers the connection check and client shutdown with the coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Send enqueues body and returns the new message ID.
	Send(ctx context.Context, body []byte) (string, error)
	// Receive waits up to wait for a message and hides it from other receivers
	// for visibility. It returns nil, nil when nothing arrived in time.
	Receive(ctx context.Context, wait, visibility time.Duration) (*Message, error)
	// Delete removes the message delivered with receipt. A receipt from an
	// earlier delivery of the same message is rejected with ErrInvalidReceipt.
	Delete(ctx context.Context, receipt string) error
}

var receiveScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
	redis.call('ZREM', KEYS[2], id)
	redis.call('RPUSH', KEYS[1], id)
end
local id = redis.call('RPOP', KEYS[1])
if not id then
	return false
end
local key = ARGV[3] .. id
local body = redis.call('HGET', key, 'body')
if not body then
	redis.call('DEL', key)
	return false
end
redis.call('ZADD', KEYS[2], ARGV[2], id)
local n = redis.call('HINCRBY', key, 'receives', 1)
return {id, body, n}
`)

var deleteScript = redis.NewScript(`
local n = redis.call('HGET', KEYS[2], 'receives')
if not n or n ~= ARGV[2] then
	return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)

type redisQueue struct {
	client    *redis.Client
	pending   string
	inflight  string
	msgPrefix string
	poll      time.Duration
	logger    *slog.Logger
	ready     atomic.Bool
}

// New creates a queue system from the given configuration.
// The connection is verified during Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeoutDuration()

	return &redisQueue{
		client:    redis.NewClient(opts),
		pending:   cfg.Name + ":pending",
		inflight:  cfg.Name + ":inflight",
		msgPrefix: cfg.Name + ":msg:",
		poll:      cfg.PollIntervalDuration(),
		logger:    logger.With("system", "queue", "queue", cfg.Name),
	}, nil
}

func (q *redisQueue) Ready() bool {
	return q.ready.Load()
}

func (q *redisQueue) Start(lc *lifecycle.Coordinator) error {
	q.logger.Info("starting queue connection")

	lc.OnStartup(func() {
		if err := q.client.Ping(lc.Context()).Err(); err != nil {
			q.logger.Error("queue ping failed", "error", err)
			return
		}
		q.ready.Store(true)
		q.logger.Info("queue connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		q.ready.Store(false)
		if err := q.client.Close(); err != nil {
			q.logger.Error("queue close failed", "error", err)
			return
		}
		q.logger.Info("queue connection closed")
	})

	return nil
}

func (q *redisQueue) Send(ctx context.Context, body []byte) (string, error) {
	if len(body) == 0 {
		return "", ErrEmptyBody
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.msgPrefix+id, "body", body, "receives", 0)
		pipe.LPush(ctx, q.pending, id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	return id, nil
}

func (q *redisQueue) Receive(ctx context.Context, wait, visibility time.Duration) (*Message, error) {
	deadline := time.Now().Add(wait)

	for {
		msg, err := q.receiveOnce(ctx, visibility)
		if err != nil || msg != nil {
			return msg, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(q.poll, remaining)):
		}
	}
}

func (q *redisQueue) receiveOnce(ctx context.Context, visibility time.Duration) (*Message, error) {
	now := time.Now()
	res, err := receiveScript.Run(
		ctx,
		q.client,
		[]string{q.pending, q.inflight},
		now.UnixMilli(),
		now.Add(visibility).UnixMilli(),
		q.msgPrefix,
	).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("receive message: unexpected reply length %d", len(res))
	}

	id, _ := res[0].(string)
	body, _ := res[1].(string)
	count, _ := res[2].(int64)

	return &Message{
		ID:           id,
		Body:         []byte(body),
		Receipt:      formatReceipt(id, int(count)),
		ReceiveCount: int(count),
	}, nil
}

func (q *redisQueue) Delete(ctx context.Context, receipt string) error {
	id, count, err := parseReceipt(receipt)
	if err != nil {
		return err
	}

	n, err := deleteScript.Run(
		ctx,
		q.client,
		[]string{q.inflight, q.msgPrefix + id},
		id,
		strconv.Itoa(count),
	).Int()
	if err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidReceipt, receipt)
	}

	return nil
}

func formatReceipt(id string, count int) string {
	return id + ":" + strconv.Itoa(count)
}

func parseReceipt(receipt string) (string, int, error) {
	id, raw, ok := strings.Cut(receipt, ":")
	if !ok || id == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidReceipt, receipt)
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidReceipt, receipt)
	}
	return id, count, nil
}
