package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence"
	"github.com/DrmagicE/pushstore/persistence/queue"
)

type Options func(s *Store)

// WithConfig set the config of the store. Default to config.DefaultConfig().
func WithConfig(config config.Config) Options {
	return func(s *Store) {
		s.config = config
	}
}

// WithLogger set the logger of the store and of every backend store built afterwards.
func WithLogger(l *zap.Logger) Options {
	return func(s *Store) {
		s.logger = l
	}
}

// WithPersistence set the backend. Default to the backend registered under config.Persistence.Type.
func WithPersistence(p persistence.Persistence) Options {
	return func(s *Store) {
		s.persistence = p
	}
}

// WithNotifier set the notifier which receives the events dropped from full queues.
func WithNotifier(n queue.Notifier) Options {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithRegisterer registers the store metrics in r on Open.
func WithRegisterer(r prometheus.Registerer) Options {
	return func(s *Store) {
		s.registerer = r
	}
}
