package persistence

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/DrmagicE/pushstore/config"
	inflight_test "github.com/DrmagicE/pushstore/persistence/inflight/test"
	"github.com/DrmagicE/pushstore/persistence/queue"
	queue_test "github.com/DrmagicE/pushstore/persistence/queue/test"
	retained_test "github.com/DrmagicE/pushstore/persistence/retained/test"
	unack_test "github.com/DrmagicE/pushstore/persistence/unack/test"
)

// BackendSuite runs every store test suite against one backend.
type BackendSuite struct {
	suite.Suite
	config config.Config
	p      Persistence
}

func (s *BackendSuite) SetupSuite() {
	p, err := New(s.config)
	s.Require().Nil(err)
	s.Require().Nil(p.Open(context.Background()))
	s.p = p
}

func (s *BackendSuite) TearDownSuite() {
	if s.p != nil {
		s.Nil(s.p.Close())
	}
}

func (s *BackendSuite) TestQueue() {
	queue_test.TestSuite(s.T(), func(opts queue.Options) queue.Store {
		qs, err := s.p.NewQueueStore(opts)
		s.Require().Nil(err)
		return qs
	})
}

func (s *BackendSuite) TestUnack() {
	st, err := s.p.NewUnackStore()
	s.Require().Nil(err)
	unack_test.TestSuite(s.T(), st)
}

func (s *BackendSuite) TestInflight() {
	pub, err := s.p.NewPublishStore()
	s.Require().Nil(err)
	rel, err := s.p.NewPubrelStore()
	s.Require().Nil(err)
	inflight_test.TestSuite(s.T(), pub, rel)
}

func (s *BackendSuite) TestRetained() {
	st, err := s.p.NewRetainedStore()
	s.Require().Nil(err)
	retained_test.TestSuite(s.T(), st)
}
