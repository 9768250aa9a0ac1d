//go:build linux || darwin

package gdbstub

import (
	"golang.org/x/sys/unix"
)

// unixWakeupSource blocks on a self-pipe, the classic analogue of an
// eventfd on platforms without one (and portable to darwin, which lacks
// eventfd entirely). Any goroutine may call WakeForEvents concurrently.
type unixWakeupSource struct {
	readFD  int
	writeFD int
}

func newUnixWakeupSource() (*unixWakeupSource, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &unixWakeupSource{readFD: fds[0], writeFD: fds[1]}, nil
}

func (s *unixWakeupSource) Wait() {
	fds := []unix.PollFd{{Fd: int32(s.readFD), Events: unix.POLLIN}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		break
	}
	var drain [64]byte
	for {
		n, err := unix.Read(s.readFD, drain[:])
		if n <= 0 || err != nil {
			break
		}
	}
}

func (s *unixWakeupSource) WakeForEvents() {
	unix.Write(s.writeFD, []byte{1})
}

func (s *unixWakeupSource) Close() error {
	unix.Close(s.writeFD)
	return unix.Close(s.readFD)
}

func newWakeupSource() (wakeupSource, error) {
	return newUnixWakeupSource()
}
