// Package notify delivers the transient user-facing notifications emitted
// on every terminal transaction transition.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier receives transient success/error notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Log writes notifications to the structured log.
type Log struct{}

func (Log) Success(msg string) {
	logrus.WithField("notification", "success").Info(msg)
}

func (Log) Error(msg string) {
	logrus.WithField("notification", "error").Warn(msg)
}

// Recorder captures notifications in memory, for tests and for surfacing
// the most recent outcomes over the API.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// Successes returns a copy of the recorded success messages.
func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Errors returns a copy of the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}
