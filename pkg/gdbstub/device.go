package gdbstub

// Memory type values, the lower 8 bits of the target kernel's MemoryState,
// ported from DebugTypes.hpp's MemoryType enum (itself copied there from
// libnx's switch/kernel/svc.h).
const (
	MemTypeUnmapped           = 0x00
	MemTypeIo                 = 0x01
	MemTypeNormal             = 0x02
	MemTypeCodeStatic         = 0x03
	MemTypeCodeMutable        = 0x04
	MemTypeHeap               = 0x05
	MemTypeSharedMem          = 0x06
	MemTypeWeirdSharedMem     = 0x07
	MemTypeModuleCodeStatic   = 0x08
	MemTypeModuleCodeMutable  = 0x09
	MemTypeIpcBuffer0         = 0x0A
	MemTypeMappedMemory       = 0x0B
	MemTypeThreadLocal        = 0x0C
	MemTypeTransferMemIso     = 0x0D
	MemTypeTransferMem        = 0x0E
	MemTypeProcessMem         = 0x0F
	MemTypeReserved           = 0x10
	MemTypeIpcBuffer1         = 0x11
	MemTypeIpcBuffer3         = 0x12
	MemTypeKernelStack        = 0x13
	MemTypeJitReadOnly        = 0x14
	MemTypeJitWritable        = 0x15
)

// Memory attribute bitmasks.
const (
	MemAttrIsBorrowed    = 1 << 0
	MemAttrIsIpcMapped   = 1 << 1
	MemAttrIsDeviceMapped = 1 << 2
	MemAttrIsUncached    = 1 << 3
)

// Memory permission bitmasks.
const (
	PermNone     = 0
	PermR        = 1 << 0
	PermW        = 1 << 1
	PermX        = 1 << 2
	PermRW       = PermR | PermW
	PermRX       = PermR | PermX
	PermDontCare = 1 << 28
)

// MemoryInfo describes one mapped region, as returned by QueryMemory.
type MemoryInfo struct {
	BaseAddr        uint64
	Size            uint64
	MemoryType      uint32
	MemoryAttribute uint32
	Permission      uint32
	DeviceRefCount  uint32
	IpcRefCount     uint32
	Padding         uint32
}

// EventType discriminates a DebugEvent's payload.
type EventType uint32

const (
	EventAttachProcess EventType = 0
	EventAttachThread  EventType = 1
	EventExitProcess   EventType = 2
	EventExitThread    EventType = 3
	EventException     EventType = 4
)

// ExitType discriminates the payload of an Exit{Process,Thread} event.
type ExitType uint64

const (
	ExitPausedThread      ExitType = 0
	ExitRunningThread     ExitType = 1
	ExitExitedProcess     ExitType = 2
	ExitTerminatedProcess ExitType = 3
)

// ExceptionType discriminates the payload of an Exception event and
// determines the GDB signal number emitted in the resulting stop reply.
type ExceptionType uint32

const (
	ExceptionTrap               ExceptionType = 0
	ExceptionInstructionAbort   ExceptionType = 1
	ExceptionDataAbortMisc      ExceptionType = 2
	ExceptionPcSpAlignmentFault ExceptionType = 3
	ExceptionDebuggerAttached   ExceptionType = 4
	ExceptionBreakPoint         ExceptionType = 5
	ExceptionUserBreak          ExceptionType = 6
	ExceptionDebuggerBreak      ExceptionType = 7
	ExceptionBadSvcId           ExceptionType = 8
	ExceptionSError             ExceptionType = 9
)

// gdbSignal maps an ExceptionType to the POSIX signal number GDB expects in
// a Txx stop reply. Unknown exception types default to SIGTRAP (5).
func gdbSignal(t ExceptionType) int {
	switch t {
	case ExceptionTrap, ExceptionDebuggerAttached, ExceptionDebuggerBreak, ExceptionUserBreak, ExceptionBreakPoint:
		return 5
	case ExceptionInstructionAbort, ExceptionDataAbortMisc:
		return 11
	case ExceptionPcSpAlignmentFault:
		return 7
	case ExceptionBadSvcId:
		return 4
	case ExceptionSError:
		return 7
	default:
		return 5
	}
}

// AttachProcessInfo is the payload of an AttachProcess event.
type AttachProcessInfo struct {
	TitleID                    uint64
	ProcessID                  uint64
	ProcessName                string
	MMUFlags                   uint32
	UserExceptionContextAddr   uint64
}

// AttachThreadInfo is the payload of an AttachThread event.
type AttachThreadInfo struct {
	ThreadID    uint64
	TLSPointer  uint64
	Entrypoint  uint64
}

// ExitInfo is the payload of an Exit{Process,Thread} event.
type ExitInfo struct {
	Type ExitType
}

// UndefinedInstructionInfo is the exception payload when ExceptionType is
// not one of the other specific classes.
type UndefinedInstructionInfo struct {
	Opcode uint32
}

// BreakpointInfo is the exception payload for software breakpoints and
// watchpoints.
type BreakpointInfo struct {
	IsWatchpoint bool
}

// UserBreakInfo is the exception payload for a SDK-injected user break
// (panics, aborts, assertion failures).
type UserBreakInfo struct {
	Info0 uint32
	Info1 uint64
	Info2 uint64
}

// BadSvcIDInfo is the exception payload for an invalid supervisor call.
type BadSvcIDInfo struct {
	SvcID uint32
}

// ExceptionInfo is the payload of an Exception event. Exactly one of the
// class-specific fields is meaningful, selected by Type.
type ExceptionInfo struct {
	Type          ExceptionType
	FaultRegister uint64

	UndefinedInstruction UndefinedInstructionInfo
	Breakpoint           BreakpointInfo
	UserBreak            UserBreakInfo
	BadSvcID             BadSvcIDInfo
}

// DebugEvent is one item from a process's asynchronous debug-event queue.
// Kind selects which of the payload fields is valid; the others are zero.
type DebugEvent struct {
	Kind     EventType
	Flags    uint32
	ThreadID uint64

	AttachProcess AttachProcessInfo
	AttachThread  AttachThreadInfo
	Exit          ExitInfo
	Exception     ExceptionInfo
}

// ThreadContext is the target's register file: 100 64-bit slots, the first
// 33 of which alias x0..x30, sp, pc. Slots beyond the architectural
// register set are zero on read and ignored on write.
type ThreadContext struct {
	Regs [100]uint64
}

// X returns general-purpose register n (0..30).
func (c *ThreadContext) X(n int) uint64 { return c.Regs[n] }

// SP returns the stack pointer.
func (c *ThreadContext) SP() uint64 { return c.Regs[31] }

// PC returns the program counter.
func (c *ThreadContext) PC() uint64 { return c.Regs[32] }

// LoadedModuleInfo describes one loaded NSO/NRO for qXfer:libraries:read.
type LoadedModuleInfo struct {
	BuildID  [0x20]byte
	BaseAddr uint64
	Size     uint64
}

// Debugger is the per-process RPC handle the stub drives. Implementations
// talk to the attached process on the target device; the stub never
// assumes anything about the transport beneath this interface.
type Debugger interface {
	Detach() error
	BreakProcess() error
	ContinueDebugEvent(flags uint32, threadIDs []uint64) error

	GetThreadContext(tid uint64) (*ThreadContext, error)
	SetThreadContext(tid uint64, ctx *ThreadContext, mask uint64) error

	ReadMemory(addr, length uint64) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error
	QueryMemory(addr uint64) (*MemoryInfo, error)

	GetNsoInfos() ([]LoadedModuleInfo, error)

	// AsyncWait arms notification of the shared HasEvents flag; it returns
	// once the debugger starts delivering, not once an event arrives.
	AsyncWait(hasEvents *AtomicFlag) error

	// GetDebugEvent returns the next queued event, or ok=false if the
	// queue is currently empty. It never blocks.
	GetDebugEvent() (ev DebugEvent, ok bool, err error)
}

// DeviceInterface attaches to processes on the target device and hands
// back a Debugger for each. This is the RPC client surface spec.md
// declares external; gdbstub only ever calls through this interface.
type DeviceInterface interface {
	AttachProcess(pid uint64) (Debugger, error)
	AttachWait(pid uint64) (Debugger, error)
}
