package gdbstub

import (
	"fmt"
	"strings"
)

const threadInfoPageSize = 16

// threadInfoCursor tracks progress through a qfThreadInfo/qsThreadInfo
// pagination sequence.
type threadInfoCursor struct {
	valid   bool
	procIdx int
	pids    []uint64
	tidIdx  int
}

// registerQueries builds the gettable/settable query tables. Handlers are
// looked up by scanning the packet body up to the query's Separator (':'
// unless declared otherwise); an unmatched prefix falls through to an
// empty reply.
func (s *Stub) registerQueries() {
	get := func(name string, sep byte, advertise bool, h func(*Stub, []byte)) {
		s.gettableQueries[name] = &Query{Name: name, Separator: sep, Advertise: advertise, Handler: h}
	}
	set := func(name string, sep byte, advertise bool, h func(*Stub, []byte)) {
		s.settableQueries[name] = &Query{Name: name, Separator: sep, Advertise: advertise, Handler: h}
	}

	get("Supported", ':', false, (*Stub).qSupported)
	get("C", 0, false, (*Stub).qC)
	get("Offsets", 0, false, (*Stub).qOffsets)
	get("fThreadInfo", 0, false, (*Stub).qfThreadInfo)
	get("sThreadInfo", 0, false, (*Stub).qsThreadInfo)
	get("Xfer", ':', false, (*Stub).qXferGet)
	get("Rcmd", ',', false, (*Stub).qRcmdQuery)

	set("StartNoAckMode", 0, false, (*Stub).qStartNoAckMode)
	set("ThreadEvents", ':', false, (*Stub).qThreadEvents)
	set("Xfer", ':', false, (*Stub).qXferSet)
}

// generalGetQuery implements the 'q' prefix.
func (s *Stub) generalGetQuery(body []byte) {
	s.runQuery(s.gettableQueries, body)
}

// generalSetQuery implements the 'Q' prefix.
func (s *Stub) generalSetQuery(body []byte) {
	s.runQuery(s.settableQueries, body)
}

// runQuery finds the longest registered prefix of body that is a valid
// query name, splitting on that query's declared separator, and invokes
// it. GDB queries are not separator-delimited on the name itself, so this
// walks the table rather than pre-splitting.
func (s *Stub) runQuery(table map[string]*Query, body []byte) {
	var best *Query
	for name, q := range table {
		if strings.HasPrefix(string(body), name) && (best == nil || len(name) > len(best.Name)) {
			best = q
		}
	}
	if best == nil {
		s.Conn.RespondEmpty()
		return
	}
	rest := body[len(best.Name):]
	if best.Separator != 0 && len(rest) > 0 && rest[0] == best.Separator {
		rest = rest[1:]
	}
	best.Handler(s, rest)
}

// qSupported negotiates feature flags, per the RSP convention of
// name+/name-/name=value tokens. multiprocess+ from GDB enables
// multiprocess thread-ids for the rest of the session.
func (s *Stub) qSupported(args []byte) {
	for _, tok := range strings.Split(string(args), ";") {
		if tok == "multiprocess+" {
			s.MultiprocessEnabled = true
		}
	}
	var parts []string
	parts = append(parts, "PacketSize=3fff", "multiprocess+")
	for name, obj := range s.xferObjects {
		if obj.AdvertisesRead() {
			parts = append(parts, fmt.Sprintf("qXfer:%s:read+", name))
		}
		if obj.AdvertisesWrite() {
			parts = append(parts, fmt.Sprintf("qXfer:%s:write+", name))
		}
	}
	parts = append(parts, s.Features...)
	s.Conn.Respond([]byte(strings.Join(parts, ";")))
}

// qC replies with the current thread-id in QC<id> form.
func (s *Stub) qC(_ []byte) {
	cur := s.Registry.Current()
	if cur == nil {
		s.Conn.Respond([]byte("QC0"))
		return
	}
	s.Conn.Respond([]byte("QC" + formatThreadID(cur.Process.PID, cur.ThreadID, s.MultiprocessEnabled)))
}

// qOffsets replies with fixed zero section offsets: the target never
// relocates after load in the stub's view.
func (s *Stub) qOffsets(_ []byte) {
	s.Conn.Respond([]byte("Text=0;Data=0;Bss=0"))
}

// qfThreadInfo starts (or restarts) a paginated thread listing.
func (s *Stub) qfThreadInfo(_ []byte) {
	procs := s.Registry.Processes()
	pids := make([]uint64, len(procs))
	for i, p := range procs {
		pids[i] = p.PID
	}
	s.threadInfoCursor = threadInfoCursor{valid: true, pids: pids}
	s.emitThreadInfoPage()
}

// qsThreadInfo continues a listing started by qfThreadInfo.
func (s *Stub) qsThreadInfo(_ []byte) {
	if !s.threadInfoCursor.valid {
		s.Conn.Respond([]byte("l"))
		return
	}
	s.emitThreadInfoPage()
}

// emitThreadInfoPage writes up to threadInfoPageSize thread-ids starting
// from the cursor, advancing it; emits "l" once every process is exhausted.
func (s *Stub) emitThreadInfoPage() {
	c := &s.threadInfoCursor
	var ids []string
	for len(ids) < threadInfoPageSize && c.procIdx < len(c.pids) {
		p, ok := s.Registry.Process(c.pids[c.procIdx])
		if !ok {
			c.procIdx++
			c.tidIdx = 0
			continue
		}
		tids := p.sortedThreadIDs()
		if c.tidIdx >= len(tids) {
			c.procIdx++
			c.tidIdx = 0
			continue
		}
		ids = append(ids, formatThreadID(p.PID, tids[c.tidIdx], s.MultiprocessEnabled))
		c.tidIdx++
	}
	if len(ids) == 0 {
		c.valid = false
		s.Conn.Respond([]byte("l"))
		return
	}
	s.Conn.Respond([]byte("m" + strings.Join(ids, ",")))
}

// qStartNoAckMode implements QStartNoAckMode.
func (s *Stub) qStartNoAckMode(_ []byte) {
	s.Conn.RespondOK()
	s.Conn.SetAckEnabled(false)
}

// qThreadEvents implements QThreadEvents:1 / QThreadEvents:0.
func (s *Stub) qThreadEvents(args []byte) {
	s.ThreadEventsEnabled = len(args) > 0 && args[0] == '1'
	s.Conn.RespondOK()
}
