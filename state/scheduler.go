package state

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	if e.Stopping.Load() {
		return
	}
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete
func (e *Env) DispatchWait(fun func(*State) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	e.Dispatch(func(s *State) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *Env) ScheduleTask(fun func(*State) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if e.Context.Err() != nil {
			return
		}
		e.Dispatch(fun)
	})
}

// TimerId identifies a timer started through a Timers service.
type TimerId int

// Timers is the periodic timer service. Callbacks run on a timer goroutine
// and must do nothing but hand work to the dispatch goroutine.
type Timers interface {
	Start(period time.Duration, cb func()) TimerId
	SetPeriod(id TimerId, period time.Duration)
	Stop(id TimerId)
}

// PeriodicTimer fires cb every period until stopped. The period may be
// rewritten from the dispatch goroutine while the timer goroutine reads it.
type PeriodicTimer struct {
	period  atomic.Int64
	stopped atomic.Bool
	timer   *time.Timer
	cb      func()
}

func NewPeriodicTimer(period time.Duration, cb func()) *PeriodicTimer {
	t := &PeriodicTimer{cb: cb}
	t.period.Store(int64(period))
	t.timer = time.AfterFunc(period, t.fire)
	return t
}

func (t *PeriodicTimer) fire() {
	if t.stopped.Load() {
		return
	}
	t.cb()
	if !t.stopped.Load() {
		t.timer.Reset(t.Period())
	}
}

func (t *PeriodicTimer) Period() time.Duration {
	return time.Duration(t.period.Load())
}

// SetPeriod takes effect from the next arming of the timer.
func (t *PeriodicTimer) SetPeriod(period time.Duration) {
	t.period.Store(int64(period))
}

func (t *PeriodicTimer) Stop() {
	t.stopped.Store(true)
	t.timer.Stop()
}

// EnvTimers is the wall-clock Timers implementation.
type EnvTimers struct {
	mu     sync.Mutex
	timers map[TimerId]*PeriodicTimer
	next   TimerId
}

func NewEnvTimers() *EnvTimers {
	return &EnvTimers{timers: make(map[TimerId]*PeriodicTimer)}
}

func (e *EnvTimers) Start(period time.Duration, cb func()) TimerId {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.timers[id] = NewPeriodicTimer(period, cb)
	return id
}

func (e *EnvTimers) SetPeriod(id TimerId, period time.Duration) {
	e.mu.Lock()
	t, ok := e.timers[id]
	e.mu.Unlock()
	if ok {
		t.SetPeriod(period)
	}
}

func (e *EnvTimers) Stop(id TimerId) {
	e.mu.Lock()
	t, ok := e.timers[id]
	delete(e.timers, id)
	e.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// StopAll stops every timer, used when a node shuts down.
func (e *EnvTimers) StopAll() {
	e.mu.Lock()
	timers := e.timers
	e.timers = make(map[TimerId]*PeriodicTimer)
	e.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}
