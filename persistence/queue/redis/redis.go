package redis

import (
	"context"
	"fmt"

	redigo "github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const (
	queuePrefix = "queue:"
)

var _ queue.Store = (*Queue)(nil)

// enqueueScript appends ARGV[1] to the list KEYS[1].
// ARGV[2] is the max length (0 = unbounded), ARGV[3] is "1" for drop oldest.
// Returns 1 when appended, nil when rejected and the dropped element when the head was evicted.
var enqueueScript = redigo.NewScript(1, `
local max = tonumber(ARGV[2])
if max > 0 and redis.call('llen', KEYS[1]) >= max then
	if ARGV[3] ~= '1' then
		return false
	end
	local dropped = redis.call('lpop', KEYS[1])
	redis.call('rpush', KEYS[1], ARGV[1])
	return dropped
end
redis.call('rpush', KEYS[1], ARGV[1])
return 1
`)

// removeScript removes the first element whose packet id equals ARGV[1].
// The packet id offset follows the publish layout of encoding version 1:
// version | kind | client id | topic | payload | qos | packet id | flags
var removeScript = redigo.NewScript(1, `
local items = redis.call('lrange', KEYS[1], 0, -1)
local pid = tonumber(ARGV[1])
for i, v in ipairs(items) do
	local off = 3
	local l = string.byte(v, off) * 256 + string.byte(v, off + 1)
	off = off + 2 + l
	l = string.byte(v, off) * 256 + string.byte(v, off + 1)
	off = off + 2 + l
	l = ((string.byte(v, off) * 256 + string.byte(v, off + 1)) * 256 + string.byte(v, off + 2)) * 256 + string.byte(v, off + 3)
	off = off + 4 + l + 1
	if string.byte(v, off) * 256 + string.byte(v, off + 1) == pid then
		redis.call('lset', KEYS[1], i - 1, '__pushstore_removed__')
		redis.call('lrem', KEYS[1], 1, '__pushstore_removed__')
		return 1
	end
end
return 0
`)

func getKey(clientID string) string {
	return queuePrefix + clientID
}

type Options struct {
	queue.Options
	Pool *redigo.Pool
}

// Queue is the redis queue store, one redis list per client.
type Queue struct {
	pool     *redigo.Pool
	max      int
	policy   queue.Policy
	notifier queue.Notifier
	log      *zap.Logger
}

func New(opts Options) *Queue {
	return &Queue{
		pool:     opts.Pool,
		max:      opts.MaxQueuedMsg,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		log:      logger.WithField(zap.String("queue", "redis")),
	}
}

func (q *Queue) Enqueue(ctx context.Context, ev *pushstore.PublishEvent) error {
	b, err := encoding.EncodePublish(ev)
	if err != nil {
		return err
	}
	c, err := q.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("queue.enqueue", err)
	}
	defer c.Close()
	dropOldest := "0"
	if q.policy == queue.PolicyDropOldest {
		dropOldest = "1"
	}
	rs, err := enqueueScript.Do(c, getKey(ev.ClientID), b, q.max, dropOldest)
	if err != nil {
		return pushstore.WrapStorage("queue.enqueue", err)
	}
	switch v := rs.(type) {
	case nil:
		q.log.Warn("message queue is full, reject message",
			zap.String("client_id", ev.ClientID),
			zap.Uint16("packet_id", ev.PacketID),
		)
		return queue.ErrDropQueueFull
	case []byte:
		dropped, err := encoding.DecodePublish(v)
		if err != nil {
			return pushstore.WrapStorage("queue.enqueue", err)
		}
		q.log.Warn("message queue is full, drop oldest message",
			zap.String("client_id", ev.ClientID),
			zap.Uint16("packet_id", dropped.PacketID),
		)
		if q.notifier != nil {
			q.notifier.NotifyDropped(dropped, queue.ErrDropQueueFull)
		}
	case int64:
	default:
		return pushstore.WrapStorage("queue.enqueue", fmt.Errorf("unexpected reply type %T", rs))
	}
	return nil
}

func (q *Queue) List(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error) {
	c, err := q.pool.GetContext(ctx)
	if err != nil {
		return nil, pushstore.WrapStorage("queue.list", err)
	}
	defer c.Close()
	rs, err := redigo.ByteSlices(c.Do("lrange", getKey(clientID), 0, -1))
	if err != nil {
		return nil, pushstore.WrapStorage("queue.list", err)
	}
	evs := make([]*pushstore.PublishEvent, 0, len(rs))
	for _, b := range rs {
		ev, err := encoding.DecodePublish(b)
		if err != nil {
			return nil, pushstore.WrapStorage("queue.list", err)
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

func (q *Queue) Remove(ctx context.Context, clientID string, pid packets.PacketID) error {
	c, err := q.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("queue.remove", err)
	}
	defer c.Close()
	_, err = removeScript.Do(c, getKey(clientID), pid)
	return pushstore.WrapStorage("queue.remove", err)
}

func (q *Queue) Len(ctx context.Context, clientID string) (int, error) {
	c, err := q.pool.GetContext(ctx)
	if err != nil {
		return 0, pushstore.WrapStorage("queue.len", err)
	}
	defer c.Close()
	n, err := redigo.Int(c.Do("llen", getKey(clientID)))
	if err != nil {
		return 0, pushstore.WrapStorage("queue.len", err)
	}
	return n, nil
}

func (q *Queue) Clean(ctx context.Context, clientID string) error {
	c, err := q.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("queue.clean", err)
	}
	defer c.Close()
	_, err = c.Do("del", getKey(clientID))
	return pushstore.WrapStorage("queue.clean", err)
}
