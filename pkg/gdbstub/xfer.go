package gdbstub

import (
	"bytes"
	"fmt"
	"strings"
)

// XferObject is a qXfer transfer target: a tagged variant rather than an
// open interface hierarchy, per the polymorphic-handler-table design.
// ReadOnlyStringXferObject is the only variant needed today.
type XferObject interface {
	AdvertisesRead() bool
	AdvertisesWrite() bool
	Read(s *Stub, annex string, offset, length int) (data []byte, last bool, err error)
	Write(s *Stub, annex string, offset int, data []byte) error
}

// ReadOnlyStringXferObject serves a generated byte blob for read-only
// qXfer objects (here, libraries). It caches the generator's output for
// the lifetime of one paginated exchange: once offset resets to 0 the
// cache is regenerated.
type ReadOnlyStringXferObject struct {
	Generator func(s *Stub) ([]byte, error)

	cached    []byte
	haveCache bool
}

func (o *ReadOnlyStringXferObject) AdvertisesRead() bool  { return true }
func (o *ReadOnlyStringXferObject) AdvertisesWrite() bool { return false }

func (o *ReadOnlyStringXferObject) Read(s *Stub, annex string, offset, length int) ([]byte, bool, error) {
	if offset == 0 || !o.haveCache {
		data, err := o.Generator(s)
		if err != nil {
			return nil, false, err
		}
		o.cached = data
		o.haveCache = true
	}
	if offset >= len(o.cached) {
		return nil, true, nil
	}
	end := offset + length
	last := end >= len(o.cached)
	if last {
		end = len(o.cached)
	}
	return o.cached[offset:end], last, nil
}

func (o *ReadOnlyStringXferObject) Write(s *Stub, annex string, offset int, data []byte) error {
	return fmt.Errorf("qXfer object is read-only")
}

// registerXferObjects builds the qXfer object table.
func (s *Stub) registerXferObjects() {
	s.xferObjects["libraries"] = &ReadOnlyStringXferObject{Generator: generateLibrariesXML}
}

// qXferGet implements the 'q,Xfer' path: "object:read:annex:offset,length".
func (s *Stub) qXferGet(args []byte) {
	obj, verb, annex, offset, length, ok := parseXferRequest(args)
	if !ok || verb != "read" {
		s.Conn.RespondEmpty()
		return
	}
	xo, ok := s.xferObjects[obj]
	if !ok {
		s.Conn.RespondEmpty()
		return
	}
	data, last, err := xo.Read(s, annex, offset, length)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	prefix := byte('m')
	if last {
		prefix = 'l'
	}
	s.Conn.Respond(append([]byte{prefix}, data...))
}

// qXferSet implements the 'Q,Xfer' write path.
func (s *Stub) qXferSet(args []byte) {
	obj, verb, annex, offset, _, ok := parseXferRequest(args)
	if !ok || verb != "write" {
		s.Conn.RespondEmpty()
		return
	}
	xo, ok := s.xferObjects[obj]
	if !ok {
		s.Conn.RespondEmpty()
		return
	}
	colon := bytes.IndexByte(args, ':')
	var data []byte
	if colon >= 0 {
		if last := bytes.LastIndexByte(args, ':'); last >= 0 {
			data = args[last+1:]
		}
	}
	if err := xo.Write(s, annex, offset, data); err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	s.Conn.RespondOK()
}

// parseXferRequest splits "object:verb:annex:offset,length" into its parts.
func parseXferRequest(args []byte) (obj, verb, annex string, offset, length int, ok bool) {
	parts := strings.SplitN(string(args), ":", 4)
	if len(parts) < 4 {
		return
	}
	obj, verb, annex = parts[0], parts[1], parts[2]
	rangeParts := strings.SplitN(parts[3], ",", 2)
	if len(rangeParts) != 2 {
		return
	}
	off := decodeU64([]byte(rangeParts[0]))
	ln := decodeU64([]byte(rangeParts[1]))
	offset, length = int(off), int(ln)
	ok = true
	return
}

// librariesCacheEntry holds one process's rendered <library> fragment
// together with the module list it was rendered from, so a later call can
// detect whether the process's module list actually changed.
type librariesCacheEntry struct {
	mods []LoadedModuleInfo
	xml  string
}

// generateLibrariesXML builds the qXfer:libraries:read document: one
// <library> element per loaded module of every attached process, keyed by
// build-id. Per-process fragments are cached in s.librariesCache and only
// regenerated when GetNsoInfos reports a different module list, so a stub
// juggling many attached processes doesn't re-render XML for idle ones on
// every paginated read.
func generateLibrariesXML(s *Stub) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0"?><library-list>`)
	for _, p := range s.Registry.Processes() {
		mods, err := p.Debugger.GetNsoInfos()
		if err != nil {
			return nil, err
		}
		b.WriteString(s.libraryFragment(p.PID, mods))
	}
	b.WriteString(`</library-list>`)
	return b.Bytes(), nil
}

// libraryFragment returns the cached XML fragment for pid if mods matches
// the module list it was last rendered from, regenerating otherwise.
func (s *Stub) libraryFragment(pid uint64, mods []LoadedModuleInfo) string {
	if s.librariesCache != nil {
		if v, ok := s.librariesCache.Get(pid); ok {
			entry := v.(librariesCacheEntry)
			if sameModules(entry.mods, mods) {
				return entry.xml
			}
		}
	}
	var b bytes.Buffer
	for _, m := range mods {
		fmt.Fprintf(&b, `<library name="%x"><segment address="0x%x"/></library>`, m.BuildID, m.BaseAddr)
	}
	frag := b.String()
	if s.librariesCache != nil {
		s.librariesCache.Add(pid, librariesCacheEntry{mods: mods, xml: frag})
	}
	return frag
}

func sameModules(a, b []LoadedModuleInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].BuildID != b[i].BuildID || a[i].BaseAddr != b[i].BaseAddr || a[i].Size != b[i].Size {
			return false
		}
	}
	return true
}
