package kafka

import (
	"sync"

	"github.com/pkg/errors"

	"NewsWire/logger"
)

type sinkJob struct {
	key     string
	payload []byte
}

// MessageSink publishes inbound socket-path messages for the external
// persistence layer to consume. Publish never blocks the read loop: jobs go
// onto a bounded queue drained by background workers, and a full queue is a
// reported (but non-fatal) drop.
type MessageSink struct {
	topic string
	jobs  chan sinkJob

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewMessageSink(topic string, workers, queue int) *MessageSink {
	if workers <= 0 {
		workers = 2
	}
	if queue <= 0 {
		queue = 4096
	}
	s := &MessageSink{
		topic: topic,
		jobs:  make(chan sinkJob, queue),
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

func (s *MessageSink) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		if err := SendSync(s.topic, job.key, job.payload); err != nil {
			logger.Warnf("[sink] publish topic=%s key=%s err=%v", s.topic, job.key, err)
		}
	}
}

// Publish enqueues one record. Returns an error only when the queue is
// saturated; callers treat that as a logged drop.
func (s *MessageSink) Publish(key string, payload []byte) error {
	select {
	case s.jobs <- sinkJob{key: key, payload: payload}:
		return nil
	default:
		return errors.New("sink queue full")
	}
}

// CloseSink drains outstanding jobs and stops the workers.
func (s *MessageSink) CloseSink() {
	s.closeOnce.Do(func() {
		close(s.jobs)
		s.wg.Wait()
	})
}
