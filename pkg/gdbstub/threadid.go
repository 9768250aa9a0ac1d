package gdbstub

import "fmt"

// threadIDAll and threadIDAny are the reserved sentinel wire values used in
// H/vCont thread-id syntax: -1 means "all", 0 means "any".
const (
	threadIDAll int64 = -1
	threadIDAny int64 = 0
)

// readThreadID parses a thread-id token per RSP's multiprocess extension:
// "pPID.TID" when multiprocess is enabled, otherwise a bare "TID". Returns
// signed values so -1 ("all") round-trips; pid is the real (unshifted) pid.
// n reports how many bytes of buf were consumed.
func readThreadID(buf []byte, multiprocess bool) (pid, tid int64, n int) {
	if multiprocess && len(buf) > 0 && buf[0] == 'p' {
		rest := buf[1:]
		wirePid, consumed := readSignedHexToken(rest, '.')
		n = 1 + consumed
		pid = unshiftSigned(wirePid)
		rest = rest[consumed:]
		wireTid, consumed2 := readSignedHexToken(rest, 0)
		n += consumed2
		tid = wireTid
		return
	}
	wireTid, consumed := readSignedHexToken(buf, 0)
	return 0, wireTid, consumed
}

// readSignedHexToken reads a hex token that may be "-1", stopping at sep
// (if sep != 0) or end of buf. Returns the value and bytes consumed,
// including a trailing sep.
func readSignedHexToken(buf []byte, sep byte) (int64, int) {
	if len(buf) > 0 && buf[0] == '-' {
		i := 1
		for i < len(buf) && buf[i] != sep {
			i++
		}
		if sep != 0 && i < len(buf) {
			i++
		}
		return -1, i
	}
	v, n := decodeU64Sep(buf, sep)
	if sep == 0 {
		n = len(buf)
		v = decodeU64(buf)
	}
	return int64(v), n
}

func unshiftSigned(wire int64) int64 {
	if wire < 0 {
		return wire
	}
	return int64(unshiftPid(uint64(wire)))
}

// formatThreadID renders a (pid, tid) pair in the wire syntax, applying the
// pid shift, for use inside stop replies and qC.
func formatThreadID(pid, tid uint64, multiprocess bool) string {
	if !multiprocess {
		return fmt.Sprintf("%x", tid)
	}
	return fmt.Sprintf("p%x.%x", shiftPid(pid), tid)
}
