package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Topics 把两类事件路由到各自的主题：操作批供协作审计/回放消费，
// 持久化结果供落盘监控消费，消费方不同所以主题分开。
// Saves 留空时持久化事件并入 Ops 主题。
type Topics struct {
	Ops   string
	Saves string
}

// Dispatcher 把文档事件异步发往 Kafka：本地有界队列 + worker + 有限重试。
// 提交主链路只负责入队，broker 短暂抖动靠队列吸收；
// 队列满、重试耗尽都允许丢事件，事件流不承诺每条必达。
type Dispatcher struct {
	producer sarama.SyncProducer
	topics   Topics

	queue chan Event

	// sem 限制同时在途的 SendMessage 数
	sem *SemaphoreControl

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewDispatcher(producer sarama.SyncProducer, topics Topics, sem *SemaphoreControl, opt DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		producer:    producer,
		topics:      topics,
		queue:       make(chan Event, opt.QueueSize),
		sem:         sem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}

	d.Start()
	return d
}

// Enqueue 把事件放进本地队列；队列满时最多等到 ctx 结束
func (d *Dispatcher) Enqueue(ctx context.Context, evt Event) error {
	select {
	case d.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		go d.workerLoop(i)
	}
}

func (d *Dispatcher) workerLoop(workerID int) {
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *Dispatcher) sendWithRetry(workerID int, evt Event) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.sem != nil {
			// worker 在主链路之外，等多久都不碍事
			_ = d.sem.Acquire(context.Background())
		}

		err := d.sendOnce(evt)

		if d.sem != nil {
			_ = d.sem.Release()
		}

		if err == nil {
			return
		}

		if attempt == d.maxRetry {
			log.Printf("kafka event dropped after %d attempts (topic=%s key=%s worker=%d): %v",
				d.maxRetry+1, d.topicFor(evt), evt.Key(), workerID, err)
			return
		}

		// 指数退避，封顶 maxBackoff
		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

// topicFor 按事件种类选主题
func (d *Dispatcher) topicFor(evt Event) string {
	switch evt.(type) {
	case SaveEvent, *SaveEvent:
		if d.topics.Saves != "" {
			return d.topics.Saves
		}
		return d.topics.Ops
	default:
		return d.topics.Ops
	}
}

func (d *Dispatcher) sendOnce(evt Event) error {
	topic := d.topicFor(evt)
	if d.producer == nil || topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(evt.Key()),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
