package sexp

import (
	"errors"
	"sync/atomic"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/brep/pkg/entity"
)

// evalResult passes a finished evaluation back from its goroutine.
type evalResult struct {
	doc *entity.Document
	err error
}

var errHalted = errors.New("evaluation halted")

// halt is raised once nobody waits for an evaluation any more. The
// interpreter checks it before every function call and abandons the
// program, so a runaway document does not keep its goroutine spinning.
type halt struct {
	stopped atomic.Bool
}

func (h *halt) stop() { h.stopped.Store(true) }

// hook is installed as a zygomys pre-call hook. Hooks cannot return an
// error; the panic is recovered by evaluate.
func (h *halt) hook(*zygo.Zlisp, string, []zygo.Sexp) {
	if h.stopped.Load() {
		panic(errHalted)
	}
}

// waitWithTimeout waits for a result from ch, but returns a
// MalformedDocument error if evaluation exceeds timeout. On timeout stop
// is called so the evaluating goroutine gives up; its result is dropped
// into the buffered channel and never read.
func waitWithTimeout(ch <-chan evalResult, timeout time.Duration, stop func()) (*entity.Document, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.doc, nil
	case <-timer.C:
		stop()
		return nil, entity.Malformed("evaluation timed out after %s", timeout)
	}
}
