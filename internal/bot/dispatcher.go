package bot

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// dispatcher runs jobs in submission order per chat, with at most one
// goroutine per chat. A panicking job is logged and skipped.
type dispatcher struct {
	mu      sync.Mutex
	pending map[int64][]func()
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func newDispatcher(logger *zap.Logger) *dispatcher {
	return &dispatcher{
		pending: make(map[int64][]func()),
		logger:  logger,
	}
}

func (d *dispatcher) Submit(chatID int64, job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, running := d.pending[chatID]
	d.pending[chatID] = append(queue, job)
	if running {
		return
	}

	d.wg.Add(1)
	go d.drain(chatID)
}

// Wait blocks until every submitted job has finished.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

func (d *dispatcher) drain(chatID int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.pending[chatID]
		if len(queue) == 0 {
			delete(d.pending, chatID)
			d.mu.Unlock()
			return
		}
		job := queue[0]
		d.pending[chatID] = queue[1:]
		d.mu.Unlock()

		d.run(chatID, job)
	}
}

func (d *dispatcher) run(chatID int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic while handling message",
				zap.Int64("chat_id", chatID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	job()
}
