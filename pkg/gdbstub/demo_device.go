package gdbstub

import "sync"

// demoDevice is a minimal in-memory stand-in for a real device-side RPC
// client, used only so `gdbstub serve` and `gdbstub console` have something
// to attach to without an actual console connected. It models a single always-present process
// with one thread and a flat zeroed memory space; AttachProcess succeeds
// for any pid, ContinueDebugEvent immediately synthesizes a BreakPoint
// exception so a GDB session gets a visible stop reply.
type demoDevice struct{}

// NewLoopbackDeviceInterface returns a DeviceInterface backed by demoDevice.
func NewLoopbackDeviceInterface() DeviceInterface {
	return demoDevice{}
}

func (demoDevice) AttachProcess(pid uint64) (Debugger, error) {
	return newDemoDebugger(pid), nil
}

func (demoDevice) AttachWait(pid uint64) (Debugger, error) {
	return newDemoDebugger(pid), nil
}

type demoDebugger struct {
	mu      sync.Mutex
	pid     uint64
	ctx     ThreadContext
	mem     map[uint64]byte
	events  []DebugEvent
}

func newDemoDebugger(pid uint64) *demoDebugger {
	d := &demoDebugger{pid: pid, mem: make(map[uint64]byte)}
	d.events = append(d.events, DebugEvent{
		Kind:     EventAttachThread,
		ThreadID: 1,
		AttachThread: AttachThreadInfo{ThreadID: 1},
	})
	return d
}

func (d *demoDebugger) Detach() error { return nil }

func (d *demoDebugger) BreakProcess() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, DebugEvent{
		Kind:      EventException,
		ThreadID:  1,
		Exception: ExceptionInfo{Type: ExceptionBreakPoint},
	})
	return nil
}

func (d *demoDebugger) ContinueDebugEvent(flags uint32, threadIDs []uint64) error {
	return d.BreakProcess()
}

func (d *demoDebugger) GetThreadContext(tid uint64) (*ThreadContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := d.ctx
	return &ctx, nil
}

func (d *demoDebugger) SetThreadContext(tid uint64, ctx *ThreadContext, mask uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = *ctx
	return nil
}

func (d *demoDebugger) ReadMemory(addr, length uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, length)
	for i := range out {
		out[i] = d.mem[addr+uint64(i)]
	}
	return out, nil
}

func (d *demoDebugger) WriteMemory(addr uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range data {
		d.mem[addr+uint64(i)] = b
	}
	return nil
}

func (d *demoDebugger) QueryMemory(addr uint64) (*MemoryInfo, error) {
	return &MemoryInfo{BaseAddr: 0, Size: 1 << 32, MemoryType: MemTypeHeap, Permission: PermRW}, nil
}

func (d *demoDebugger) GetNsoInfos() ([]LoadedModuleInfo, error) {
	return nil, nil
}

func (d *demoDebugger) AsyncWait(hasEvents *AtomicFlag) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) > 0 {
		hasEvents.Set()
	}
	return nil
}

func (d *demoDebugger) GetDebugEvent() (DebugEvent, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return DebugEvent{}, false, nil
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true, nil
}
