package kafka

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

var (
	KafkaClient sarama.Client
	Producer    sarama.SyncProducer
)

func InitKafkaClient(c Config) error {
	client, err := sarama.NewClient(c.Brokers, BuildBaseConfig(c))
	if err != nil {
		return errors.Wrap(err, "new kafka client")
	}
	KafkaClient = client
	return nil
}

func InitSyncProducerFromClient() error {
	if KafkaClient == nil {
		return errors.New("kafka client not initialized")
	}
	p, err := sarama.NewSyncProducerFromClient(KafkaClient)
	if err != nil {
		return errors.Wrap(err, "new sync producer")
	}
	Producer = p
	return nil
}

// SendSync publishes one record keyed for partition affinity.
func SendSync(topic, key string, value []byte) error {
	if Producer == nil {
		return errors.New("kafka producer not initialized")
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := Producer.SendMessage(msg)
	return err
}

func Close() error {
	var firstErr error
	if Producer != nil {
		if err := Producer.Close(); err != nil {
			firstErr = err
		}
		Producer = nil
	}
	if KafkaClient != nil {
		if err := KafkaClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		KafkaClient = nil
	}
	return firstErr
}
