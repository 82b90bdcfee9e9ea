// Package worker hosts the task mux the background asynq server consumes.
package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// Mux maps task types (e.g. harvest runs) to their handlers.
type Mux struct{ mux *asynq.ServeMux }

func NewMux() *Mux { return &Mux{mux: asynq.NewServeMux()} }

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

// Mux exposes the underlying ServeMux for asynq server startup.
func (m *Mux) Mux() *asynq.ServeMux { return m.mux }
