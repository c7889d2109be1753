package natsx

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// NatsManager is the facade the rest of the project uses: publish to a
// subject, subscribe with optional queue-group sharing. Core NATS only;
// relay traffic is fire-and-forget, durability lives in the persistence
// pipeline.
type NatsManager struct {
	client *NatsxClient
	mws    []NatsxMiddleware
}

func NewNatsManager(cfg NatsxConfig, middlewares ...NatsxMiddleware) (*NatsManager, error) {
	c, err := NewNatsxClient(cfg)
	if err != nil {
		return nil, err
	}
	return &NatsManager{client: c, mws: middlewares}, nil
}

func (m *NatsManager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *NatsManager) Publish(subject string, data []byte, hdr map[string]string) error {
	if m == nil || m.client == nil {
		return errors.New("manager not initialized")
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	if err := m.client.nc.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "publish failed")
	}
	return nil
}

// Subscribe attaches h to subject; a non-empty queue shares work across a
// group instead of broadcasting.
func (m *NatsManager) Subscribe(subject, queue string, h NatsxHandler) error {
	if m == nil || m.client == nil {
		return errors.New("manager not initialized")
	}
	h = NatsxChain(h, m.mws...)

	cb := func(msg *nats.Msg) {
		_ = h(context.Background(), NatsxMessage{
			Subject: msg.Subject,
			Data:    append([]byte(nil), msg.Data...),
			Header:  headerToMap(msg.Header),
		})
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = m.client.nc.Subscribe(subject, cb)
	} else {
		sub, err = m.client.nc.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return errors.Wrap(err, "subscribe")
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)

	m.client.mu.Lock()
	m.client.subs = append(m.client.subs, sub)
	m.client.mu.Unlock()
	return nil
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
