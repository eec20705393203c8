package core

import (
	"reflect"
	"time"

	"github.com/encodeous/rpl/state"
)

func Get[T state.NyModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

// Find is Get for modules that may not be loaded.
func Find[T state.NyModule](s *state.State) (T, bool) {
	t := reflect.TypeFor[T]()
	m, ok := s.Modules[t.String()].(T)
	return m, ok
}

// Jitter spreads period over [period-128ms, period+127ms] using a random byte.
func Jitter(period time.Duration, rnd uint8) time.Duration {
	half := state.Jitter / 2
	step := state.Jitter / 256
	return max(period-half+time.Duration(rnd)*step, time.Millisecond)
}

