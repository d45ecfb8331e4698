package orchestration

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	conversationCommandQueueCapacity = 32
	slowCommandWait                  = 500 * time.Millisecond
)

var ErrClosed = errors.New("guide controller closed")

type command struct {
	name     string
	run      func()
	done     chan struct{}
	queuedAt time.Time
}

// conversationRuntime is the single goroutine that owns controller state.
// Every state change is a command executed here in arrival order.
type conversationRuntime struct {
	queue   chan command
	closeCh chan struct{}
	done    chan struct{}

	// onCommandDone runs on the runtime goroutine after every command.
	onCommandDone func()

	startOnce sync.Once
	endOnce   sync.Once
	started   atomic.Bool
}

func newConversationRuntime() *conversationRuntime {
	return &conversationRuntime{
		queue:         make(chan command, conversationCommandQueueCapacity),
		closeCh:       make(chan struct{}),
		done:          make(chan struct{}),
		onCommandDone: func() {},
	}
}

func (runtime *conversationRuntime) start() {
	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)
			for {
				select {
				case <-runtime.closeCh:
					return
				case queued := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					runtime.execute(queued)
				}
			}
		}()
	})
}

func (runtime *conversationRuntime) execute(queued command) {
	defer func() {
		if queued.done != nil {
			close(queued.done)
		}
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("controller command panicked", "command", queued.name, "panic", fmt.Sprint(recovered))
		}
	}()

	if waited := time.Since(queued.queuedAt); waited > slowCommandWait {
		logger.Warn("controller command waited in queue", "command", queued.name, "waited", waited, "queued_commands", runtime.queuedCommandCount())
	}

	queued.run()
	runtime.onCommandDone()
}

// post queues run without waiting for it.
func (runtime *conversationRuntime) post(name string, run func()) bool {
	if runtime.isClosed() {
		return false
	}
	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- command{name: name, run: run, queuedAt: time.Now()}:
		return true
	}
}

// call queues run and waits until it has executed. It must not be used from
// the runtime goroutine.
func (runtime *conversationRuntime) call(name string, run func()) error {
	if runtime.isClosed() {
		return ErrClosed
	}

	done := make(chan struct{})
	select {
	case <-runtime.closeCh:
		return ErrClosed
	case runtime.queue <- command{name: name, run: run, done: done, queuedAt: time.Now()}:
	}

	select {
	case <-done:
		return nil
	case <-runtime.closeCh:
		return ErrClosed
	}
}

func (runtime *conversationRuntime) end() {
	runtime.endOnce.Do(func() { close(runtime.closeCh) })
}

func (runtime *conversationRuntime) waitUntilEnded() {
	if runtime.started.Load() {
		<-runtime.done
	}
}

func (runtime *conversationRuntime) isClosed() bool {
	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *conversationRuntime) queuedCommandCount() int {
	return len(runtime.queue)
}
