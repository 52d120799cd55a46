package worker

import (
	"context"
	"fmt"

	"events-report/internal/config"
	"events-report/internal/model"

	"github.com/IBM/sarama"
)

// KafkaTransport 는 report 하나를 topic 메시지 하나로 보낸다.
// key 는 report id, format 은 header 로 싣는다.
type KafkaTransport struct {
	producer sarama.SyncProducer
	topic    string
}

func kafkaConfig(clientID string) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = clientID
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	// 실패한 report 는 버린다
	c.Producer.Retry.Max = 0
	return c
}

func NewKafkaTransport(brokers []string, topic, clientID string) (*KafkaTransport, error) {
	producer, err := sarama.NewSyncProducer(brokers, kafkaConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("connect kafka %v: %w", brokers, err)
	}
	return &KafkaTransport{producer: producer, topic: topic}, nil
}

func (t *KafkaTransport) Name() string { return config.SinkKafka }

// Deliver 는 SyncProducer 가 context 를 받지 않으므로 시작 전에만 ctx 를 확인한다.
// 대기 시간은 sarama 의 Producer.Timeout / Net 설정이 제한한다.
func (t *KafkaTransport) Deliver(ctx context.Context, p *model.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := t.producer.SendMessage(&sarama.ProducerMessage{
		Topic: t.topic,
		Key:   sarama.StringEncoder(p.ReportID),
		Value: sarama.ByteEncoder(p.Body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("format"), Value: []byte(p.Format)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka send report %s: %w", p.ReportID, err)
	}
	return nil
}

func (t *KafkaTransport) Close() error {
	return t.producer.Close()
}
