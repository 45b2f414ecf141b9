package cli

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is how a worker goroutine ended
type Result struct {
	Name  string
	Err   error
	Panic interface{} // Recovered panic value, nil when the worker returned normally
	Stack []byte
}

// worker is a goroutine whose end can be waited for with a timeout
type worker struct {
	name   string
	done   chan struct{}
	result Result
}

// spawn runs fn in a new goroutine. A panic in fn is recovered into the
// worker's Result instead of crashing the program.
func spawn(log logrus.FieldLogger, name string, fn func() error) *worker {
	w := &worker{
		name: name,
		done: make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		defer func() {
			if r := recover(); r != nil {
				w.result.Panic = r
				w.result.Stack = debug.Stack()
				log.WithField("worker", name).WithField("panic", fmt.Sprint(r)).Error("worker panicked")
			}
		}()

		w.result.Name = name
		w.result.Err = fn()
		log.WithField("worker", name).WithError(w.result.Err).Debug("worker finished")
	}()
	return w
}

// Done is closed when the worker has finished
func (w *worker) Done() <-chan struct{} {
	return w.done
}

// join waits up to timeout for the worker to finish. It reports false when the
// worker is still running.
func (w *worker) join(timeout time.Duration) (Result, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.done:
		r := w.result
		r.Name = w.name
		return r, true
	case <-timer.C:
		return Result{Name: w.name}, false
	}
}
