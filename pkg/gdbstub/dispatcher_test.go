package gdbstub

import (
	"strings"
	"testing"
)

// fakeDebugger is a scriptable Debugger for dispatcher tests: no real RPC,
// just an in-memory register file, memory map, and a manually queued
// event list.
type fakeDebugger struct {
	ctx       ThreadContext
	mem       map[uint64]byte
	events    []DebugEvent
	detached  bool
	broken    int
	continued int
	mods      []LoadedModuleInfo
}

func newFakeDebugger() *fakeDebugger {
	return &fakeDebugger{mem: make(map[uint64]byte)}
}

func (d *fakeDebugger) Detach() error { d.detached = true; return nil }
func (d *fakeDebugger) BreakProcess() error {
	d.broken++
	return nil
}
func (d *fakeDebugger) ContinueDebugEvent(flags uint32, threadIDs []uint64) error {
	d.continued++
	return nil
}
func (d *fakeDebugger) GetThreadContext(tid uint64) (*ThreadContext, error) {
	ctx := d.ctx
	return &ctx, nil
}
func (d *fakeDebugger) SetThreadContext(tid uint64, ctx *ThreadContext, mask uint64) error {
	d.ctx = *ctx
	return nil
}
func (d *fakeDebugger) ReadMemory(addr, length uint64) ([]byte, error) {
	out := make([]byte, length)
	for i := range out {
		out[i] = d.mem[addr+uint64(i)]
	}
	return out, nil
}
func (d *fakeDebugger) WriteMemory(addr uint64, data []byte) error {
	for i, b := range data {
		d.mem[addr+uint64(i)] = b
	}
	return nil
}
func (d *fakeDebugger) QueryMemory(addr uint64) (*MemoryInfo, error) {
	return &MemoryInfo{BaseAddr: addr, Size: 0x1000, MemoryType: MemTypeHeap, Permission: PermRW}, nil
}
func (d *fakeDebugger) GetNsoInfos() ([]LoadedModuleInfo, error) { return d.mods, nil }
func (d *fakeDebugger) AsyncWait(hasEvents *AtomicFlag) error {
	if len(d.events) > 0 {
		hasEvents.Set()
	}
	return nil
}
func (d *fakeDebugger) GetDebugEvent() (DebugEvent, bool, error) {
	if len(d.events) == 0 {
		return DebugEvent{}, false, nil
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true, nil
}

type fakeDevice struct {
	dbg *fakeDebugger
}

func (f *fakeDevice) AttachProcess(pid uint64) (Debugger, error) { return f.dbg, nil }
func (f *fakeDevice) AttachWait(pid uint64) (Debugger, error)    { return f.dbg, nil }

// newTestStub builds a Stub wired to a fakeChannel sink and a fresh
// fakeDebugger/fakeDevice pair, with one thread already attached at pid 1
// tid 1.
func newTestStub(t *testing.T) (*Stub, *fakeChannel, *fakeDebugger) {
	t.Helper()
	dbg := newFakeDebugger()
	dbg.events = append(dbg.events, DebugEvent{
		Kind:         EventAttachThread,
		ThreadID:     1,
		AttachThread: AttachThreadInfo{ThreadID: 1},
	})
	conn := NewConn(nil)
	ch := &fakeChannel{}
	conn.SetSink(ch)
	s := NewStub(&fakeDevice{dbg: dbg}, conn, nil, nil, nil)
	return s, ch, dbg
}

func sendPacket(s *Stub, body string) {
	s.Conn.Feed([]byte(framePacket(body)))
	msg, interrupted := s.Conn.Process()
	s.OnPacket(msg, interrupted)
}

func TestDispatch_UnknownPrefixRepliesEmpty(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "zzz")
	if !strings.HasSuffix(ch.all(), "$#00") {
		t.Fatalf("expected an empty reply for an unsupported packet; got %q", ch.all())
	}
}

func TestDispatch_QuestionMarkWithNoStopReasonRepliesOK(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "?")
	if !strings.Contains(ch.all(), "OK") {
		t.Fatalf("expected OK when no stop reason is pending; got %q", ch.all())
	}
}

func TestDispatch_VAttachEmitsStopReply(t *testing.T) {
	s, ch, _ := newTestStub(t)
	ch.written = nil
	sendPacket(s, "vAttach;1")
	if !strings.Contains(ch.all(), "T05thread:") {
		t.Fatalf("expected a T05 stop reply after attach; got %q", ch.all())
	}
}

func TestDispatch_RegisterRoundTrip(t *testing.T) {
	s, ch, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")
	dbg.ctx.Regs[0] = 0x1122334455667788
	dbg.ctx.Regs[32] = 0xdeadbeef // pc

	ch.written = nil
	sendPacket(s, "g")
	reply := ch.all()
	if !strings.Contains(reply, "8877665544332211") {
		t.Fatalf("expected little-endian x0 in register dump; got %q", reply)
	}
}

func TestDispatch_WriteGeneralRegisters(t *testing.T) {
	s, ch, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")

	var buf Buffer
	for i := range dbg.ctx.Regs {
		var v uint64
		if i == 31 {
			v = 0x42
		}
		encodeLittleEndianU64(&buf, v)
	}
	ch.written = nil
	sendPacket(s, "G"+string(buf.Read()))
	if !strings.Contains(ch.all(), "OK") {
		t.Fatalf("expected OK after writing registers; got %q", ch.all())
	}
	if dbg.ctx.SP() != 0x42 {
		t.Fatalf("expected sp to be written through; got %#x", dbg.ctx.SP())
	}
}

func TestDispatch_MemoryReadWrite(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "vAttach;1")

	ch.written = nil
	sendPacket(s, "M1000,2:abcd")
	if !strings.Contains(ch.all(), "OK") {
		t.Fatalf("expected OK after memory write; got %q", ch.all())
	}

	ch.written = nil
	sendPacket(s, "m1000,2")
	if !strings.Contains(ch.all(), "abcd") {
		t.Fatalf("expected the written bytes back; got %q", ch.all())
	}
}

func TestDispatch_BreakInterruptRequestsStop(t *testing.T) {
	s, _, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")

	s.Conn.Feed([]byte{0x03})
	msg, interrupted := s.Conn.Process()
	s.OnPacket(msg, interrupted)
	if dbg.broken == 0 {
		t.Fatalf("expected break interrupt to call BreakProcess")
	}
	if !s.WaitingForStop {
		t.Fatalf("expected WaitingForStop after a break")
	}
}

func TestDispatch_ThreadInfoPagination(t *testing.T) {
	s, ch, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")
	// queue enough AttachThread events to exceed one page
	for i := uint64(2); i <= uint64(threadInfoPageSize+5); i++ {
		dbg.events = append(dbg.events, DebugEvent{
			Kind:         EventAttachThread,
			ThreadID:     i,
			AttachThread: AttachThreadInfo{ThreadID: i},
		})
	}
	for _, p := range s.Registry.Processes() {
		s.ingestEvents(p)
	}

	ch.written = nil
	sendPacket(s, "qfThreadInfo")
	firstPage := ch.all()
	// Each reply is preceded by the '+' ack for the request packet.
	if !strings.HasPrefix(strings.TrimPrefix(strings.TrimPrefix(firstPage, "+"), "$"), "m") {
		t.Fatalf("expected first page to start with 'm'; got %q", firstPage)
	}

	// Keep paging until the terminal "l" marker appears; this stub's page
	// size is smaller than the thread count queued above, so more than one
	// qsThreadInfo round trip is expected before exhaustion.
	sawTerminal := false
	for i := 0; i < 10; i++ {
		ch.written = nil
		sendPacket(s, "qsThreadInfo")
		page := strings.TrimPrefix(strings.TrimPrefix(ch.all(), "+"), "$")
		if strings.HasPrefix(page, "l") {
			sawTerminal = true
			break
		}
	}
	if !sawTerminal {
		t.Fatalf("expected thread-info pagination to terminate with an 'l' page")
	}
}

func TestDispatch_VContQueryAdvertisesActions(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "vCont?")
	if !strings.Contains(ch.all(), "vCont;c;C;s;S;t") {
		t.Fatalf("expected the fixed vCont action list; got %q", ch.all())
	}
}

func TestDispatch_DetachAllRespondsOK(t *testing.T) {
	s, ch, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")
	ch.written = nil
	sendPacket(s, "D")
	if !strings.Contains(ch.all(), "OK") {
		t.Fatalf("expected OK after detach; got %q", ch.all())
	}
	if !dbg.detached {
		t.Fatalf("expected the debugger to observe Detach")
	}
	if len(s.Registry.Processes()) != 0 {
		t.Fatalf("expected no processes left in the registry after detach")
	}
}

func TestDispatch_ExceptionEventProducesStopReply(t *testing.T) {
	s, ch, dbg := newTestStub(t)
	sendPacket(s, "vAttach;1")

	dbg.events = append(dbg.events, DebugEvent{
		Kind:      EventException,
		ThreadID:  1,
		Exception: ExceptionInfo{Type: ExceptionBreakPoint},
	})
	ch.written = nil
	sendPacket(s, "vCont;c")
	for _, p := range s.Registry.Processes() {
		p.HasEvents.Set()
	}
	s.OnPrepare()
	if !strings.Contains(ch.all(), "T05thread:") {
		t.Fatalf("expected a T05 stop reply once the exception event ingests; got %q", ch.all())
	}
}
