package pool

import (
	"github.com/utkarsh5026/jobpool/internal/cpu"
)

// worker is the dequeue loop run by every goroutine of a generation.
//
// The stop flag is checked at the top of every iteration. A worker that is
// mid-action when its generation is stopped finishes the action, records the
// completion against its own generation and then exits.
func (p *Pool) worker(g *generation, id int) {
	defer g.wg.Done()

	if p.pinWorkers {
		defer cpu.SetupWorkerAffinity(id)()
	}

	for {
		p.mu.Lock()
		for !g.stopped && p.queue.Len() == 0 {
			p.work.Wait()
		}
		if g.stopped {
			p.mu.Unlock()
			return
		}
		item := p.queue.PopFront()
		g.busy++
		p.mu.Unlock()

		// Panics are deliberately not recovered here.
		item.action(item.state)

		p.mu.Lock()
		g.busy--
		p.completed.Add(1)
		p.idle.Broadcast()
		p.mu.Unlock()
	}
}
