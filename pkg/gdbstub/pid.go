package gdbstub

// shiftedAnyPID is the wire value substituted for the real pid 0. RSP
// reserves pid 0 to mean "any process", but pid 0 is a valid real target
// pid, so the stub shifts it out of the way before it ever reaches the
// wire. Ported from GdbStub::ShiftPid in the original source.
const shiftedAnyPID = 512

// shiftPid maps a real pid to its wire representation. shift(0) is never 0.
func shiftPid(real uint64) uint64 {
	if real == 0 {
		return shiftedAnyPID
	}
	return real
}

// unshiftPid maps a wire pid back to the real pid.
func unshiftPid(wire uint64) uint64 {
	if wire == shiftedAnyPID {
		return 0
	}
	return wire
}
