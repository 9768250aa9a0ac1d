package gdbstub

import "fmt"

// ingestEvents drains p's debug-event queue until empty, applying each
// event to the registry and updating StopReason as it goes. It returns
// true iff the process is now stopped (an exception or process-exit was
// drained), matching Process::ingest_events in the original design.
func (s *Stub) ingestEvents(p *Process) bool {
	stopped := false
	for {
		ev, ok, err := p.Debugger.GetDebugEvent()
		if err != nil || !ok {
			break
		}
		if s.applyEvent(p, ev) {
			stopped = true
		}
	}
	return stopped
}

// applyEvent classifies one DebugEvent and updates registry/StopReason
// state accordingly. Returns true if this event should be treated as a
// stop (Exception or ExitProcess).
func (s *Stub) applyEvent(p *Process, ev DebugEvent) bool {
	switch ev.Kind {
	case EventAttachProcess:
		// state already present from vAttach/vAttachWait
		return false

	case EventAttachThread:
		t := &Thread{Process: p, ThreadID: ev.AttachThread.ThreadID, TLSAddr: ev.AttachThread.TLSPointer}
		p.Threads[t.ThreadID] = t
		if s.Registry.Current() == nil {
			s.Registry.SetCurrent(t)
		}
		if s.ThreadEventsEnabled {
			s.StopReason = fmt.Sprintf("T05create;thread:%s;", formatThreadID(p.PID, t.ThreadID, s.MultiprocessEnabled))
		}
		if s.eventsLog != nil {
			s.eventsLog.Debugf("thread %d attached to process %d", t.ThreadID, p.PID)
		}
		return false

	case EventExitThread:
		if s.ThreadEventsEnabled {
			s.StopReason = fmt.Sprintf("T05thread:%s;", formatThreadID(p.PID, ev.ThreadID, s.MultiprocessEnabled))
		}
		s.Registry.OnThreadExit(p.PID, ev.ThreadID)
		if s.eventsLog != nil {
			s.eventsLog.Debugf("thread %d of process %d exited", ev.ThreadID, p.PID)
		}
		return false

	case EventExitProcess:
		s.Registry.RemoveProcess(p.PID)
		s.StopReason = fmt.Sprintf("W00;process:%x", shiftPid(p.PID))
		if s.eventsLog != nil {
			s.eventsLog.Debugf("process %d exited", p.PID)
		}
		return true

	case EventException:
		sig := gdbSignal(ev.Exception.Type)
		s.StopReason = fmt.Sprintf("T%02xthread:%s;", sig, formatThreadID(p.PID, ev.ThreadID, s.MultiprocessEnabled))
		p.Running = false
		if s.eventsLog != nil {
			s.eventsLog.Debugf("process %d thread %d hit exception %v (signal %d)", p.PID, ev.ThreadID, ev.Exception.Type, sig)
		}
		return true
	}
	return false
}
