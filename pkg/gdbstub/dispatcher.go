package gdbstub

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// Query is a gettable or settable q/Q handler. Handler receives the bytes
// after the prefix and separator (if any were declared).
type Query struct {
	Name      string
	Separator byte // 0 means "no separator, prefix is the whole match"
	Advertise bool // whether qSupported should mention this query
	Handler   func(s *Stub, args []byte)
}

// multiletterHandler serves one v-prefixed token (vAttach, vCont, ...).
type multiletterHandler struct {
	Handler func(s *Stub, args []byte)
}

// Stub is the top-level dispatcher: packet routing, process/thread
// bookkeeping, and reply formatting all hang off one value, per the
// no-process-wide-state design.
type Stub struct {
	Conn     *Conn
	Device   DeviceInterface
	Registry *Registry
	WakeSrc  wakeupSource // notified whenever a process's HasEvents is raised

	Features []string

	gettableQueries map[string]*Query
	settableQueries map[string]*Query
	multiletter     map[string]*multiletterHandler
	xferObjects     map[string]XferObject

	MultiprocessEnabled bool
	ThreadEventsEnabled bool

	StopReason     string
	WaitingForStop bool
	hasAsyncWait   bool

	threadInfoCursor threadInfoCursor

	librariesCache *lru.Cache

	log         *logrus.Entry
	dispatchLog *logrus.Entry
	eventsLog   *logrus.Entry
}

// NewStub builds a Stub wired to device, ready to have Run called on it
// once a Conn and Loop are attached.
func NewStub(device DeviceInterface, conn *Conn, log, dispatchLog, eventsLog *logrus.Entry) *Stub {
	cache, _ := lru.New(64)
	s := &Stub{
		Conn:            conn,
		Device:          device,
		Registry:        newRegistry(),
		gettableQueries: make(map[string]*Query),
		settableQueries: make(map[string]*Query),
		multiletter:     make(map[string]*multiletterHandler),
		xferObjects:     make(map[string]XferObject),
		librariesCache:  cache,
		log:             log,
		dispatchLog:     dispatchLog,
		eventsLog:       eventsLog,
	}
	s.registerQueries()
	s.registerMultiletter()
	s.registerXferObjects()
	return s
}

// OnPacket implements Logic. It is called once per complete inbound
// packet, or with interrupted=true for a bare 0x03 break byte.
func (s *Stub) OnPacket(msg []byte, interrupted bool) {
	if interrupted {
		s.handleBreak()
		return
	}
	if s.dispatchLog != nil {
		s.dispatchLog.Tracef("dispatch: %q", msg)
	}
	s.dispatch(msg)
}

// OnPrepare implements Logic. It re-enters the stop-reply path if a
// process has pending events while a stop reply is owed.
func (s *Stub) OnPrepare() {
	if !s.WaitingForStop {
		return
	}
	for _, p := range s.Registry.Processes() {
		if p.HasEvents.TestAndClear() {
			s.ingestEvents(p)
		}
	}
	if s.WaitingForStop && s.StopReason != "" {
		s.Conn.Respond([]byte(s.StopReason))
		s.WaitingForStop = false
	}
}

// dispatch inspects the packet's first byte and routes to the matching
// handler table entry. Any byte not in the table gets an empty reply per
// RSP's convention for unsupported packets.
func (s *Stub) dispatch(msg []byte) {
	if len(msg) == 0 {
		s.Conn.RespondEmpty()
		return
	}
	body := msg[1:]
	switch msg[0] {
	case '?':
		s.handleGetStopReason()
	case 'D':
		s.handleDetach(body)
	case 'g':
		s.readGeneralRegisters()
	case 'G':
		s.writeGeneralRegisters(body)
	case 'H':
		s.setCurrentThread(body)
	case 'm':
		s.readMemory(body)
	case 'M':
		s.writeMemory(body)
	case 'q':
		s.generalGetQuery(body)
	case 'Q':
		s.generalSetQuery(body)
	case 'T':
		s.isThreadAlive(body)
	case 'v':
		s.multiletterDispatch(body)
	default:
		s.Conn.RespondEmpty()
	}
}

// handleBreak requests the running process(es) stop; the eventual T05
// arrives via the normal ingestion path once the debugger delivers it.
func (s *Stub) handleBreak() {
	for _, p := range s.Registry.Processes() {
		if p.Running {
			p.Debugger.BreakProcess()
		}
	}
	s.WaitingForStop = true
}

// handleGetStopReason answers '?': the same stop reply machinery used
// after vCont, but replied immediately from the last known StopReason.
func (s *Stub) handleGetStopReason() {
	if s.StopReason == "" {
		s.Conn.RespondOK()
		return
	}
	s.Conn.Respond([]byte(s.StopReason))
}

// handleDetach implements 'D': detach one process (if a pid was given) or
// all processes.
func (s *Stub) handleDetach(body []byte) {
	if len(body) == 0 {
		for _, p := range s.Registry.Processes() {
			p.Debugger.Detach()
			s.Registry.RemoveProcess(p.PID)
		}
		if s.log != nil {
			s.log.Info("detached from all processes")
		}
		s.Conn.RespondOK()
		return
	}
	wirePid := decodeU64(body)
	realPid := unshiftPid(wirePid)
	p, ok := s.Registry.Process(realPid)
	if !ok {
		s.Conn.RespondError(0x16)
		return
	}
	p.Debugger.Detach()
	s.Registry.RemoveProcess(realPid)
	if s.log != nil {
		s.log.Infof("detached from process %d", realPid)
	}
	s.Conn.RespondOK()
}

// setCurrentThread implements 'H': "Hg<thread-id>" and "Hc<thread-id>" are
// both accepted and treated identically, matching every stub GDB talks to
// in practice; the stub has no separate continue-thread concept.
func (s *Stub) setCurrentThread(body []byte) {
	if len(body) == 0 {
		s.Conn.RespondError(0x01)
		return
	}
	rest := body[1:]
	pid, tid, _ := readThreadID(rest, s.MultiprocessEnabled)
	if tid == threadIDAll || tid == threadIDAny {
		s.Conn.RespondOK()
		return
	}
	var realPid uint64
	if pid > 0 {
		realPid = uint64(pid)
	}
	t, ok := s.Registry.Lookup(realPid, uint64(tid))
	if !ok {
		s.Conn.RespondError(0x01)
		return
	}
	s.Registry.SetCurrent(t)
	s.Conn.RespondOK()
}

// isThreadAlive implements 'T'.
func (s *Stub) isThreadAlive(body []byte) {
	pid, tid, _ := readThreadID(body, s.MultiprocessEnabled)
	var realPid uint64
	if pid > 0 {
		realPid = uint64(pid)
	}
	if _, ok := s.Registry.Lookup(realPid, uint64(tid)); !ok {
		s.Conn.RespondError(0x16)
		return
	}
	s.Conn.RespondOK()
}

// multiletterDispatch implements the 'v' prefix: scan up to ';' or ':' or
// end of packet, look up the token, and invoke it.
func (s *Stub) multiletterDispatch(body []byte) {
	i := 0
	for i < len(body) && body[i] != ';' && body[i] != ':' {
		i++
	}
	name := "v" + string(body[:i])
	h, ok := s.multiletter[name]
	if !ok {
		s.Conn.RespondEmpty()
		return
	}
	var rest []byte
	if i < len(body) {
		rest = body[i+1:]
	}
	h.Handler(s, rest)
}
