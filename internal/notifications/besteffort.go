package notifications

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// taskGroup runs side effects whose failure must never reach the caller.
// Errors and panics are logged; Wait blocks until every task has returned.
type taskGroup struct {
	wg  sync.WaitGroup
	log *zap.Logger
}

func (g *taskGroup) Go(name string, fields []zap.Field, fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				g.log.Error(name+" panicked", append(fields, zap.String("panic", fmt.Sprint(rec)))...)
			}
		}()

		if err := fn(); err != nil {
			g.log.Warn(name+" failed", append(fields, zap.Error(err))...)
		}
	}()
}

func (g *taskGroup) Wait() {
	g.wg.Wait()
}
