package swarm

import (
	"fmt"
	"time"

	"github.com/huangsam/hotswarm/schema"
)

// Monitor loads the swarm state and flags executing workers whose heartbeat is older
// than the configured timeout. Flagged workers are persisted with status timeout and
// their ids are returned. The external agent is not stopped.
func (o *Orchestrator) Monitor() (*schema.SwarmState, []int, error) {
	state, err := o.State()
	if err != nil {
		return nil, nil, err
	}
	now := o.now().UTC()
	var timedOut []int
	for i := range state.Workers {
		w := &state.Workers[i]
		if w.Status != schema.WorkerExecuting {
			continue
		}
		last := w.Heartbeat
		if last == nil {
			last = w.StartedAt
		}
		if last == nil {
			continue
		}
		age := now.Sub(*last)
		if age <= o.cfg.HeartbeatTimeout {
			continue
		}
		w.Status = schema.WorkerTimeout
		w.Error = fmt.Sprintf("no heartbeat for %s (timeout %s)", age.Round(time.Second), o.cfg.HeartbeatTimeout)
		timedOut = append(timedOut, w.WorkerID)
	}
	if len(timedOut) > 0 {
		if err := o.saveState(state); err != nil {
			return state, timedOut, err
		}
	}
	return state, timedOut, nil
}
