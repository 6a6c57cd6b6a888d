// Package timer makes timing operations easier.
package timer

import (
	"time"

	"go.uber.org/zap"
)

// Timer reports the duration of an operation when stopped.
//
// The standard way to use Timer is at the top of the func you want to
// measure:
//
//	defer timer.New("full diff pass").Stop()
type Timer struct {
	Begin time.Time
	Name  string
}

func New(name string) *Timer {
	return &Timer{
		Begin: time.Now(),
		Name:  name,
	}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.Begin)
	zap.S().Debugf("%s %v", t.Name, d)
	return d
}
