package engine

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// wiring is the pair of streams the builder hands to one stage.
type wiring struct {
	in, out Stream
}

// runPipeline starts every stage of a multi-stage pipeline, left to right,
// connecting each adjacent pair with a pipe, then waits for all of them.
//
// After a stage starts, the parent closes its copy of every pipe end given to
// that stage; a stray write end held open here would keep the reader from
// ever seeing end of file.
func (e *Engine) runPipeline(p *pipeline.Pipeline) []*Process {
	n := len(p.Stages)
	wires := make([]wiring, n)
	procs := make([]*Process, 0, n)

	var handles handleSet
	defer func() {
		if leaked := handles.releaseAll(); leaked > 0 {
			e.log.Printf("released %d pipe descriptors left open", leaked)
		}
	}()

	for i := 0; i < n; i++ {
		st := &p.Stages[i]

		if i < n-1 {
			r, w, err := e.pipe(fmt.Sprintf("%s | %s", st.Name(), p.Stages[i+1].Name()))
			if err != nil {
				// Nothing downstream can be wired; fail the rest and let the
				// stages already running drain.
				report(e.stderr, err)
				e.closeParentCopy(wires[i].in)
				for j := i; j < n; j++ {
					procs = append(procs, failedProcess(&p.Stages[j], StatusFailure, err))
				}
				break
			}
			handles.add(r, w)
			wires[i].out = pipeStream(w)
			wires[i+1].in = pipeStream(r)
		}

		procs = append(procs, e.spawner.Start(st, wires[i].in, wires[i].out))

		e.closeParentCopy(wires[i].in)
		e.closeParentCopy(wires[i].out)
	}

	e.waitAll(procs)
	return procs
}

func (e *Engine) closeParentCopy(s Stream) {
	if err := s.closeIfPipe(); err != nil {
		e.log.Printf("close %s: %v", s.Handle.Name(), err)
	}
}

// waitAll reaps every process. Statuses are kept on the processes.
func (e *Engine) waitAll(procs []*Process) {
	var g errgroup.Group
	for _, proc := range procs {
		proc := proc
		g.Go(func() error {
			_, err := proc.Wait()
			return errors.Wrapf(err, "wait %s", proc.Stage.Name())
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Printf("%v", err)
	}
}
