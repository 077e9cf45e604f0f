package mem

import (
	"container/list"
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const shardCount = 64

var _ queue.Store = (*Queue)(nil)

type shard struct {
	mu     sync.Mutex
	queues map[string]*list.List
}

// Queue is the in-memory queue store.
type Queue struct {
	shards   [shardCount]shard
	max      int
	policy   queue.Policy
	notifier queue.Notifier
	log      *zap.Logger
}

func New(opts queue.Options) *Queue {
	q := &Queue{
		max:      opts.MaxQueuedMsg,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		log:      logger.WithField(zap.String("queue", "memory")),
	}
	for i := range q.shards {
		q.shards[i].queues = make(map[string]*list.List)
	}
	return q
}

func (q *Queue) shard(clientID string) *shard {
	return &q.shards[keylock.Index(clientID, shardCount)]
}

func (q *Queue) Enqueue(ctx context.Context, ev *pushstore.PublishEvent) error {
	s := q.shard(ev.ClientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.queues[ev.ClientID]
	if !ok {
		l = list.New()
		s.queues[ev.ClientID] = l
	}
	if queue.Full(l.Len(), q.max) {
		if q.policy != queue.PolicyDropOldest {
			q.log.Warn("message queue is full, reject message",
				zap.String("client_id", ev.ClientID),
				zap.Uint16("packet_id", ev.PacketID),
			)
			return queue.ErrDropQueueFull
		}
		front := l.Front()
		l.Remove(front)
		dropped := front.Value.(*pushstore.PublishEvent)
		q.log.Warn("message queue is full, drop oldest message",
			zap.String("client_id", ev.ClientID),
			zap.Uint16("packet_id", dropped.PacketID),
		)
		if q.notifier != nil {
			q.notifier.NotifyDropped(dropped, queue.ErrDropQueueFull)
		}
	}
	l.PushBack(ev.Copy())
	return nil
}

func (q *Queue) List(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error) {
	s := q.shard(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.queues[clientID]
	if !ok {
		return nil, nil
	}
	rs := make([]*pushstore.PublishEvent, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		rs = append(rs, e.Value.(*pushstore.PublishEvent).Copy())
	}
	return rs, nil
}

func (q *Queue) Remove(ctx context.Context, clientID string, pid packets.PacketID) error {
	s := q.shard(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.queues[clientID]
	if !ok {
		return nil
	}
	for e := l.Front(); e != nil; e = e.Next() {
		if e.Value.(*pushstore.PublishEvent).PacketID == pid {
			l.Remove(e)
			break
		}
	}
	if l.Len() == 0 {
		delete(s.queues, clientID)
	}
	return nil
}

func (q *Queue) Len(ctx context.Context, clientID string) (int, error) {
	s := q.shard(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.queues[clientID]; ok {
		return l.Len(), nil
	}
	return 0, nil
}

func (q *Queue) Clean(ctx context.Context, clientID string) error {
	s := q.shard(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, clientID)
	return nil
}
