package gdbstub

import "bytes"

// readMemory implements 'm ADDR,LEN'.
func (s *Stub) readMemory(body []byte) {
	t := s.Registry.Current()
	if t == nil {
		s.Conn.RespondError(0x01)
		return
	}
	comma := bytes.IndexByte(body, ',')
	if comma < 0 {
		s.Conn.RespondError(0x01)
		return
	}
	addr := decodeU64(body[:comma])
	length := decodeU64(body[comma+1:])
	data, err := t.Process.Debugger.ReadMemory(addr, length)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	var out Buffer
	encodeBytes(&out, data)
	s.Conn.Respond(out.Read())
}

// writeMemory implements 'M ADDR,LEN:DATA'.
func (s *Stub) writeMemory(body []byte) {
	t := s.Registry.Current()
	if t == nil {
		s.Conn.RespondError(0x01)
		return
	}
	comma := bytes.IndexByte(body, ',')
	colon := bytes.IndexByte(body, ':')
	if comma < 0 || colon < 0 || colon < comma {
		s.Conn.RespondError(0x01)
		return
	}
	addr := decodeU64(body[:comma])
	data := decodeBytes(body[colon+1:])
	if err := t.Process.Debugger.WriteMemory(addr, data); err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	s.Conn.RespondOK()
}
