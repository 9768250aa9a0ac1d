package gdbstub

import "sort"

// Thread is one attached thread. Process is a non-owning back-reference;
// the owning edge runs Registry -> Process -> Thread, so Thread never
// outlives the map entry that created it.
type Thread struct {
	Process  *Process
	ThreadID uint64
	TLSAddr  uint64
}

// Process is one attached target process and its known threads.
type Process struct {
	PID               uint64 // real pid, never the shifted wire value
	Debugger          Debugger
	Threads           map[uint64]*Thread
	RunningThreadIDs  []uint64
	HasEvents         AtomicFlag
	Running           bool
}

func newProcess(pid uint64, dbg Debugger) *Process {
	return &Process{
		PID:      pid,
		Debugger: dbg,
		Threads:  make(map[uint64]*Thread),
	}
}

// sortedThreadIDs returns the process's thread-ids in ascending order.
func (p *Process) sortedThreadIDs() []uint64 {
	ids := make([]uint64, 0, len(p.Threads))
	for id := range p.Threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// anyThread returns an arbitrary thread of the process, or nil if it has
// none. It prefers the lowest thread-id for determinism.
func (p *Process) anyThread() *Thread {
	ids := p.sortedThreadIDs()
	if len(ids) == 0 {
		return nil
	}
	return p.Threads[ids[0]]
}

// Registry tracks attached processes in ascending pid order and the
// currently selected thread for single-thread GDB operations (g/G/m/M).
type Registry struct {
	pids    []uint64 // kept sorted
	procs   map[uint64]*Process
	current *Thread
}

func newRegistry() *Registry {
	return &Registry{procs: make(map[uint64]*Process)}
}

// AddProcess inserts a new process, keeping pids sorted.
func (r *Registry) AddProcess(p *Process) {
	r.procs[p.PID] = p
	i := sort.Search(len(r.pids), func(i int) bool { return r.pids[i] >= p.PID })
	r.pids = append(r.pids, 0)
	copy(r.pids[i+1:], r.pids[i:])
	r.pids[i] = p.PID
}

// RemoveProcess detaches pid from the registry, clearing current if it
// pointed into the removed process.
func (r *Registry) RemoveProcess(pid uint64) {
	delete(r.procs, pid)
	for i, id := range r.pids {
		if id == pid {
			r.pids = append(r.pids[:i], r.pids[i+1:]...)
			break
		}
	}
	if r.current != nil && r.current.Process.PID == pid {
		r.reassignCurrent()
	}
}

// Process looks up a process by real pid.
func (r *Registry) Process(pid uint64) (*Process, bool) {
	p, ok := r.procs[pid]
	return p, ok
}

// Processes returns all attached processes in ascending pid order.
func (r *Registry) Processes() []*Process {
	out := make([]*Process, 0, len(r.pids))
	for _, pid := range r.pids {
		out = append(out, r.procs[pid])
	}
	return out
}

// Current returns the currently selected thread, or nil if none.
func (r *Registry) Current() *Thread { return r.current }

// SetCurrent selects t as the current thread.
func (r *Registry) SetCurrent(t *Thread) { r.current = t }

// reassignCurrent picks a new current thread after the old one's process
// or thread vanished, preferring any thread of any remaining process.
// Clears current entirely if no threads remain anywhere.
func (r *Registry) reassignCurrent() {
	for _, pid := range r.pids {
		if t := r.procs[pid].anyThread(); t != nil {
			r.current = t
			return
		}
	}
	r.current = nil
}

// OnThreadExit removes tid from its process and, if it was current,
// reassigns current to another live thread.
func (r *Registry) OnThreadExit(pid, tid uint64) {
	p, ok := r.procs[pid]
	if !ok {
		return
	}
	delete(p.Threads, tid)
	if r.current != nil && r.current.Process == p && r.current.ThreadID == tid {
		r.reassignCurrent()
	}
}

// Lookup resolves a (pid, tid) pair from the wire per the RSP thread-id
// convention: pid==0 means "use current thread's process", tid==0 means
// "any thread of that process". Both real (already-unshifted) values.
func (r *Registry) Lookup(pid, tid uint64) (*Thread, bool) {
	var p *Process
	if pid == 0 {
		if r.current == nil {
			return nil, false
		}
		p = r.current.Process
	} else {
		var ok bool
		p, ok = r.procs[pid]
		if !ok {
			return nil, false
		}
	}
	if tid == 0 {
		t := p.anyThread()
		return t, t != nil
	}
	t, ok := p.Threads[tid]
	return t, ok
}
