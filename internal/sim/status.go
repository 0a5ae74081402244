package sim

import "github.com/OCAP2/awareness/pkg/core"

// Stats are cumulative driver counters.
type Stats struct {
	Ticks           int `json:"ticks"`
	DrainedCommands int `json:"drainedCommands"`
	FailedCommands  int `json:"failedCommands"`
	Evictions       int `json:"evictions"`
	Hurts           int `json:"hurts"`
	TraceErrors     int `json:"traceErrors"`
}

// Status is a snapshot of the driver taken at the end of a tick.
type Status struct {
	Session string         `json:"session"`
	Running bool           `json:"running"`
	Frame   core.Frame     `json:"frame"`
	Time    core.Timestamp `json:"time"`
	Agents  int            `json:"agents"`
	Squads  int            `json:"squads"`
	// Tracked counts records across private and squad tables.
	Tracked int `json:"tracked"`
	// Pending counts commands waiting for the next tick.
	Pending int   `json:"pending"`
	Stats   Stats `json:"stats"`
}

// Status returns the snapshot published by the last tick. Safe for concurrent use.
func (d *Driver) Status() Status {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return d.status
}

func (d *Driver) publishStatus() {
	s := d.session.Get()
	st := Status{
		Session: s.Name,
		Running: d.session.Running(),
		Frame:   d.world.Frame(),
		Time:    d.world.Now(),
		Agents:  len(d.agents),
		Squads:  len(d.squads),
		Pending: d.inbox.Len() + d.disp.Pending(),
		Stats:   d.stats,
	}
	for _, t := range d.agents {
		st.Tracked += t.Table().Len()
	}
	for _, sq := range d.squads {
		st.Tracked += sq.Table().Len()
	}

	d.statusMu.Lock()
	d.status = st
	d.statusMu.Unlock()
}
