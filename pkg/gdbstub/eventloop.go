package gdbstub

import "sync/atomic"

// AtomicFlag is a single-bit edge-triggered signal set by a Debugger's
// background delivery and consumed by the event loop. It mirrors the
// has_events shared flag threaded through Process in the original design.
// Notify, if set, is called after the flag is raised so the owning Loop's
// Wait() returns promptly instead of waiting for unrelated channel traffic.
type AtomicFlag struct {
	v      int32
	Notify func()
}

// Set raises the flag and invokes Notify if one is attached. Safe to call
// from any goroutine.
func (f *AtomicFlag) Set() {
	atomic.StoreInt32(&f.v, 1)
	if f.Notify != nil {
		f.Notify()
	}
}

// TestAndClear reports whether the flag was set, clearing it atomically.
func (f *AtomicFlag) TestAndClear() bool {
	return atomic.SwapInt32(&f.v, 0) != 0
}

// wakeupSource is the platform hook a Loop blocks on between iterations.
// Any goroutine that feeds new channel bytes into a Conn, or that observes
// a process's AtomicFlag being set, calls WakeForEvents to release Wait.
// eventloop_unix.go and eventloop_other.go provide implementations; the
// distinction only matters in how efficiently Wait blocks, never in what
// it means for the loop to wake.
type wakeupSource interface {
	Wait()
	WakeForEvents()
	Close() error
}

// Loop drives the single-threaded cooperative model described by the stub:
// each iteration waits for a wakeup, drains every complete inbound packet,
// then gives the Logic a chance to react to process events. All handler
// code the Logic invokes runs to completion before the next Wait.
type Loop struct {
	src   wakeupSource
	conn  *Conn
	logic Logic
}

// Logic is implemented by the dispatcher. OnPacket is invoked once per
// complete inbound packet; OnPrepare is invoked once per loop iteration
// after packets are drained, so the dispatcher can notice process events
// that arrived outside of a packet (e.g. an async stop while
// waiting_for_stop).
type Logic interface {
	OnPacket(msg []byte, interrupted bool)
	OnPrepare()
}

// NewLoop constructs a Loop driven by logic. The caller is responsible for
// feeding conn with channel bytes (Conn.Feed) and calling src.WakeForEvents
// after doing so, and for arming each Process's Debugger to call
// src.WakeForEvents when it raises HasEvents.
func NewLoop(src wakeupSource, conn *Conn, logic Logic) *Loop {
	return &Loop{src: src, conn: conn, logic: logic}
}

// Run drives iterations until the connection's error flag is set.
func (l *Loop) Run() error {
	defer l.src.Close()
	for !l.conn.Errored() {
		l.src.Wait()
		for {
			msg, interrupted := l.conn.Process()
			if interrupted {
				l.logic.OnPacket(nil, true)
				continue
			}
			if msg == nil {
				break
			}
			l.logic.OnPacket(msg, false)
		}
		l.logic.OnPrepare()
	}
	return nil
}
