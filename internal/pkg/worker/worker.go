package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PushTask 一次设备推送
type PushTask struct {
	AccountID string
	Title     string
	Body      string
	Ext       map[string]string
	Retry     int // 已重试次数
}

// Handler 执行一个任务，返回错误时按重试策略重新入队
type Handler func(ctx context.Context, task PushTask) error

// WorkerPool 有界推送队列：固定数量的 worker 消费 TaskQueue，失败任务经 RetryQueue 延迟后重新入队
type WorkerPool struct {
	TaskQueue  chan PushTask
	RetryQueue chan PushTask
	WorkerNum  int
	MaxRetry   int           // 最大重试次数
	Backoff    time.Duration // 第 n 次重试前等待 n*Backoff

	handler Handler
	log     *zap.Logger
	quit    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
}

func NewWorkerPool(handler Handler, workerNum int, bufferSize int, log *zap.Logger) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 1 {
		bufferSize = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		TaskQueue:  make(chan PushTask, bufferSize),
		RetryQueue: make(chan PushTask, bufferSize/2),
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		Backoff:    time.Second,
		handler:    handler,
		log:        log,
		quit:       make(chan struct{}),
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	p.log.Info("push worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止所有 worker，队列中未处理的任务被丢弃
func (p *WorkerPool) Stop() {
	p.stop.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.log.Info("push worker pool stopped", zap.Int("pending", len(p.TaskQueue)))
	})
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.TaskQueue:
			p.process(id, task)
		}
	}
}

func (p *WorkerPool) process(id int, task PushTask) {
	err := p.handler(context.Background(), task)
	if err == nil {
		return
	}

	fields := []zap.Field{
		zap.Int("worker", id),
		zap.String("account", task.AccountID),
		zap.Int("attempt", task.Retry+1),
		zap.Error(err),
	}

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry < p.MaxRetry {
		task.Retry++
		select {
		case p.RetryQueue <- task:
			p.log.Warn("push failed, scheduled retry", fields...)
		default:
			p.logFailedTask("retry queue full", fields)
		}
		return
	}
	p.logFailedTask("max retries exceeded", fields)
}

func (p *WorkerPool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			timer := time.NewTimer(time.Duration(task.Retry) * p.Backoff)
			select {
			case <-p.quit:
				timer.Stop()
				return
			case <-timer.C:
			}

			select {
			case p.TaskQueue <- task:
			default:
				p.logFailedTask("main queue full on retry", []zap.Field{zap.String("account", task.AccountID)})
			}
		}
	}
}

func (p *WorkerPool) logFailedTask(reason string, fields []zap.Field) {
	p.log.Error("push dropped: "+reason, fields...)
}

// AddTask 非阻塞入队，队列满或已停止时返回 false
func (p *WorkerPool) AddTask(task PushTask) bool {
	select {
	case <-p.quit:
		return false
	default:
	}

	select {
	case p.TaskQueue <- task:
		return true
	default:
		p.logFailedTask("queue full", []zap.Field{zap.String("account", task.AccountID)})
		return false
	}
}
