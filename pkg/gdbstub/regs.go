package gdbstub

// readGeneralRegisters implements 'g': the current thread's full 100-u64
// register file, encoded as 800 bytes little-endian, lowercase hex, with
// the surplus slots past the architectural registers sent as zero.
func (s *Stub) readGeneralRegisters() {
	t := s.Registry.Current()
	if t == nil {
		s.Conn.RespondError(0x01)
		return
	}
	ctx, err := t.Process.Debugger.GetThreadContext(t.ThreadID)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	var out Buffer
	for i, r := range ctx.Regs {
		if i >= numArchRegs {
			r = 0
		}
		encodeLittleEndianU64(&out, r)
	}
	s.Conn.Respond(out.Read())
}

// numArchRegs is the number of leading register-file slots that hold
// architectural state (x0..x30, sp, pc); the rest are surplus.
const numArchRegs = 33

// writeGeneralRegisters implements 'G': decode an 800-byte hex blob into a
// 100-u64 register file and write it back with a full mask. Only the
// architectural slots are taken from the blob; surplus slots keep the
// thread's current values.
func (s *Stub) writeGeneralRegisters(body []byte) {
	t := s.Registry.Current()
	if t == nil {
		s.Conn.RespondError(0x01)
		return
	}
	raw := decodeBytes(body)
	ctx, err := t.Process.Debugger.GetThreadContext(t.ThreadID)
	if err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	for i := 0; i < numArchRegs && (i+1)*8 <= len(raw); i++ {
		ctx.Regs[i] = decodeLittleEndianU64(raw[i*8 : i*8+8])
	}
	if err := t.Process.Debugger.SetThreadContext(t.ThreadID, ctx, ^uint64(0)); err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	s.Conn.RespondOK()
}

// encodeLittleEndianU64 appends the little-endian hex encoding of n.
func encodeLittleEndianU64(out *Buffer, n uint64) {
	for i := 0; i < 8; i++ {
		b := uint8(n >> (8 * i))
		out.Write(encodeHexNybble(b>>4), encodeHexNybble(b&0xf))
	}
}

// decodeLittleEndianU64 decodes 8 raw bytes (already hex-decoded) as a
// little-endian u64.
func decodeLittleEndianU64(p []byte) uint64 {
	var n uint64
	for i := 7; i >= 0; i-- {
		n = n<<8 | uint64(p[i])
	}
	return n
}
