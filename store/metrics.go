package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore/persistence/retained"
)

const metricPrefix = "pushstore_"

const (
	opListMessagesInSession            = "ListMessagesInSession"
	opStoreMessageToSessionForPublish  = "StoreMessageToSessionForPublish"
	opRemoveMessageInSessionForPublish = "RemoveMessageInSessionForPublish"
	opQueueLen                         = "QueueLen"
	opStorePublishPacketID             = "StorePublishPacketId"
	opRemovePublishPacketID            = "RemovePublishPacketId"
	opStorePubrecPacketID              = "StorePubrecPacketId"
	opRemovePubrecPacketID             = "RemovePubrecPacketId"
	opStoreQosPublishMessage           = "StoreQosPublishMessage"
	opRemoveQosPublishMessage          = "RemoveQosPublishMessage"
	opSearchQosPublishMessage          = "SearchQosPublishMessage"
	opStorePubrelMessage               = "StorePubrelMessage"
	opRemovePubrelMessage              = "RemovePubrelMessage"
	opSearchPubrelMessage              = "SearchPubrelMessage"
	opStoreRetained                    = "StoreRetained"
	opCleanRetained                    = "CleanRetained"
	opSearchRetained                   = "SearchRetained"
	opIterateRetained                  = "IterateRetained"
	opDestroySession                   = "DestroySession"
	opSendPublish                      = "SendPublish"
	opReceivePuback                    = "ReceivePuback"
	opReceivePubrec                    = "ReceivePubrec"
	opReceivePubcomp                   = "ReceivePubcomp"
	opRetryPublish                     = "RetryPublish"
	opRetryPubrel                      = "RetryPubrel"
	opReceivePublishQoS2               = "ReceivePublishQos2"
	opReceivePubrel                    = "ReceivePubrel"
)

var operations = []string{
	opListMessagesInSession,
	opStoreMessageToSessionForPublish,
	opRemoveMessageInSessionForPublish,
	opQueueLen,
	opStorePublishPacketID,
	opRemovePublishPacketID,
	opStorePubrecPacketID,
	opRemovePubrecPacketID,
	opStoreQosPublishMessage,
	opRemoveQosPublishMessage,
	opSearchQosPublishMessage,
	opStorePubrelMessage,
	opRemovePubrelMessage,
	opSearchPubrelMessage,
	opStoreRetained,
	opCleanRetained,
	opSearchRetained,
	opIterateRetained,
	opDestroySession,
	opSendPublish,
	opReceivePuback,
	opReceivePubrec,
	opReceivePubcomp,
	opRetryPublish,
	opRetryPubrel,
	opReceivePublishQoS2,
	opReceivePubrel,
}

// OperationStats is the counters of one store operation.
type OperationStats struct {
	Total  uint64
	Errors uint64
}

// Stats is a snapshot of the store counters. Operations is keyed by the snake case operation name.
type Stats struct {
	Operations    map[string]OperationStats
	QueueDropped  uint64
	QueueRejected uint64
}

type opCounter struct {
	name   string
	total  uint64
	errors uint64
}

// statsManager holds one counter per operation. The map is built once and never written
// afterwards, so counters are updated without locking.
type statsManager struct {
	ops      map[string]*opCounter
	dropped  uint64
	rejected uint64
}

func newStatsManager() *statsManager {
	s := &statsManager{
		ops: make(map[string]*opCounter, len(operations)),
	}
	for _, op := range operations {
		s.ops[op] = &opCounter{name: strcase.ToSnake(op)}
	}
	return s
}

func (s *statsManager) observe(op string, err error) {
	c := s.ops[op]
	if c == nil {
		return
	}
	atomic.AddUint64(&c.total, 1)
	if err != nil {
		atomic.AddUint64(&c.errors, 1)
	}
}

func (s *statsManager) queueDropped() {
	atomic.AddUint64(&s.dropped, 1)
}

func (s *statsManager) queueRejected() {
	atomic.AddUint64(&s.rejected, 1)
}

func (s *statsManager) snapshot() Stats {
	st := Stats{
		Operations:    make(map[string]OperationStats, len(s.ops)),
		QueueDropped:  atomic.LoadUint64(&s.dropped),
		QueueRejected: atomic.LoadUint64(&s.rejected),
	}
	for _, c := range s.ops {
		st.Operations[c.name] = OperationStats{
			Total:  atomic.LoadUint64(&c.total),
			Errors: atomic.LoadUint64(&c.errors),
		}
	}
	return st
}

var (
	operationsDesc = prometheus.NewDesc(metricPrefix+"operations_total",
		"Number of store operations.", []string{"op"}, nil)
	operationErrorsDesc = prometheus.NewDesc(metricPrefix+"operation_errors_total",
		"Number of store operations which returned an error.", []string{"op"}, nil)
	queueDroppedDesc = prometheus.NewDesc(metricPrefix+"queue_dropped_total",
		"Number of queued messages evicted by the drop_oldest policy.", nil, nil)
	queueRejectedDesc = prometheus.NewDesc(metricPrefix+"queue_rejected_total",
		"Number of messages rejected because the queue was full.", nil, nil)
	retainedDesc = prometheus.NewDesc(metricPrefix+"retained_messages",
		"Number of retained messages.", nil, nil)
)

const collectTimeout = 5 * time.Second

// collector exposes the store counters to prometheus.
type collector struct {
	store *Store
}

func newCollector(s *Store) *collector {
	return &collector{store: s}
}

func (c *collector) Describe(desc chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, desc)
}

func (c *collector) Collect(m chan<- prometheus.Metric) {
	st := c.store.stats.snapshot()
	for name, op := range st.Operations {
		m <- prometheus.MustNewConstMetric(operationsDesc, prometheus.CounterValue, float64(op.Total), name)
		m <- prometheus.MustNewConstMetric(operationErrorsDesc, prometheus.CounterValue, float64(op.Errors), name)
	}
	m <- prometheus.MustNewConstMetric(queueDroppedDesc, prometheus.CounterValue, float64(st.QueueDropped))
	m <- prometheus.MustNewConstMetric(queueRejectedDesc, prometheus.CounterValue, float64(st.QueueRejected))

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	n, err := retained.Count(ctx, c.store.retained)
	if err != nil {
		c.store.log.Warn("fail to count retained messages", zap.Error(err))
		return
	}
	m <- prometheus.MustNewConstMetric(retainedDesc, prometheus.GaugeValue, float64(n))
}
