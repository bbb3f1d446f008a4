package databus

import (
	"strings"

	"gopkg.in/Shopify/sarama.v1"

	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

type Event interface {
	Serialize() []byte
	Topic() string
}

type DataBus struct {
	producer sarama.SyncProducer
}

var producer *DataBus

func InitDataBus(host string) {
	hosts := strings.Split(host, ",")
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	if p, err := sarama.NewSyncProducer(hosts, conf); err != nil {
		log.Fatalf("Failed to create producer: %s", err)
	} else {
		producer = &DataBus{producer: p}
	}
	log.Info("Kafka producer initialized...")
}

func GetDataBus() *DataBus {
	return producer
}

func (db *DataBus) PublishRaw(topic string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	_, _, err := db.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(raw)})
	if err != nil {
		return errors.WrapAndReport(err, "produce message")
	}
	return nil
}

func (db *DataBus) Publish(e Event) (err error) {
	return db.PublishRaw(e.Topic(), e.Serialize())
}
