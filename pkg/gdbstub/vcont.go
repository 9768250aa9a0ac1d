package gdbstub

import "strings"

// registerMultiletter builds the v-prefix dispatch table.
func (s *Stub) registerMultiletter() {
	reg := func(name string, h func(*Stub, []byte)) {
		s.multiletter[name] = &multiletterHandler{Handler: h}
	}
	reg("vAttach", (*Stub).vAttach)
	reg("vAttachWait", (*Stub).vAttachWait)
	reg("vCont?", (*Stub).vContQuery)
	reg("vCont", (*Stub).vCont)
}

// vAttach parses a real pid, attaches via the device, registers the
// process, drains any events already queued, and replies with a stop
// packet for the process's first thread.
func (s *Stub) vAttach(args []byte) {
	realPid := decodeU64(args)
	dbg, err := s.Device.AttachProcess(realPid)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	s.attachCommon(realPid, dbg)
}

// vAttachWait behaves like vAttach but attaches through the device's
// AttachWait. args carries a hex-encoded name, which attachWaitByName reads
// as a hex pid.
func (s *Stub) vAttachWait(args []byte) {
	name := string(decodeBytes(args))
	realPid, dbg, err := s.attachWaitByName(name)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	s.attachCommon(realPid, dbg)
}

// attachWaitByName parses name as a hex pid and calls the device's
// AttachWait with it. The device interface's AttachWait takes a pid in this
// stub's model; no process is looked up by name.
func (s *Stub) attachWaitByName(name string) (uint64, Debugger, error) {
	pid := decodeU64([]byte(name))
	dbg, err := s.Device.AttachWait(pid)
	return pid, dbg, err
}

// attachCommon finishes attaching realPid via dbg: registers the Process,
// drains immediately-available events, selects a current thread, and
// emits the stop reply expected after vAttach.
func (s *Stub) attachCommon(realPid uint64, dbg Debugger) {
	p := newProcess(realPid, dbg)
	p.Running = true
	if s.WakeSrc != nil {
		p.HasEvents.Notify = s.WakeSrc.WakeForEvents
	}
	s.Registry.AddProcess(p)
	if s.log != nil {
		s.log.Infof("attached to process %d", realPid)
	}
	dbg.AsyncWait(&p.HasEvents)

	for {
		ev, ok, err := dbg.GetDebugEvent()
		if err != nil || !ok {
			break
		}
		s.applyEvent(p, ev)
	}
	if t := p.anyThread(); t != nil {
		s.Registry.SetCurrent(t)
	}
	s.WaitingForStop = true
	if s.StopReason == "" {
		if t := s.Registry.Current(); t != nil {
			s.StopReason = "T05thread:" + formatThreadID(p.PID, t.ThreadID, s.MultiprocessEnabled) + ";"
		}
	}
	if s.StopReason != "" {
		s.Conn.Respond([]byte(s.StopReason))
		s.WaitingForStop = false
	}
}

// vContQuery replies with the fixed set of vCont actions this stub
// supports.
func (s *Stub) vContQuery(_ []byte) {
	s.Conn.Respond([]byte("vCont;c;C;s;S;t"))
}

// vCont parses ';'-separated actions, each an action letter optionally
// followed by ":thread-id", and issues the corresponding continue/break
// RPCs. It never replies directly; the eventual stop reply comes from the
// ingestion path once waiting_for_stop is honored.
func (s *Stub) vCont(args []byte) {
	for _, action := range strings.Split(string(args), ";") {
		if action == "" {
			continue
		}
		letter := action[0]
		var threadSpec []byte
		if idx := strings.IndexByte(action, ':'); idx >= 0 {
			threadSpec = []byte(action[idx+1:])
		}
		s.applyContAction(letter, threadSpec)
	}
	s.WaitingForStop = true
}

// applyContAction issues one vCont action against the process(es) implied
// by threadSpec (empty means "all attached processes").
func (s *Stub) applyContAction(letter byte, threadSpec []byte) {
	targets := s.resolveContTargets(threadSpec)
	for _, p := range targets {
		switch letter {
		case 'c', 'C':
			p.Debugger.ContinueDebugEvent(0, nil)
			p.Running = true
		case 's', 'S':
			p.Debugger.ContinueDebugEvent(1, contThreadIDs(threadSpec, p))
			p.Running = true
		case 't':
			p.Debugger.BreakProcess()
		}
	}
}

// resolveContTargets returns the processes a vCont action with the given
// thread-id spec applies to.
func (s *Stub) resolveContTargets(threadSpec []byte) []*Process {
	if len(threadSpec) == 0 {
		return s.Registry.Processes()
	}
	pid, tid, _ := readThreadID(threadSpec, s.MultiprocessEnabled)
	if tid == threadIDAll {
		return s.Registry.Processes()
	}
	var realPid uint64
	if pid > 0 {
		realPid = uint64(pid)
	} else if cur := s.Registry.Current(); cur != nil {
		realPid = cur.Process.PID
	}
	if p, ok := s.Registry.Process(realPid); ok {
		return []*Process{p}
	}
	return nil
}

// contThreadIDs narrows a continue action to a single thread when the
// vCont spec named one explicitly.
func contThreadIDs(threadSpec []byte, p *Process) []uint64 {
	if len(threadSpec) == 0 {
		return nil
	}
	_, tid, _ := readThreadID(threadSpec, true)
	if tid <= 0 {
		return nil
	}
	return []uint64{uint64(tid)}
}
