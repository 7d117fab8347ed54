package events

import (
	"context"
	"errors"
	"fmt"
)

const defaultSendSlots = 100

// SemaphoreControl 限制同时在途的 Kafka 发送数，
// broker 抖动时拦住 worker，不让慢发送把连接池占满
type SemaphoreControl struct {
	ch chan struct{}
}

func NewSemaphoreControl(limit int) *SemaphoreControl {
	if limit <= 0 {
		limit = defaultSendSlots
	}
	return &SemaphoreControl{ch: make(chan struct{}, limit)}
}

// Acquire 占一个发送名额；ctx 取消时放弃等待
func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("semaphore acquire: %w", ctx.Err())
	}
}

// Release 归还名额。没占过名额就归还说明配对写错了，直接报错暴露出来
func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return errors.New("semaphore release without matching acquire")
	}
}
