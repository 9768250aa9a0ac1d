package gdbstub

import (
	"bufio"
	"net"
)

// NetChannel adapts a net.Conn to the Channel interface, buffering reads
// the way delve's gdbConn wraps its net.Conn in a bufio.Reader.
type NetChannel struct {
	conn net.Conn
	rdr  *bufio.Reader
}

// NewNetChannel wraps conn for use as a Conn's Channel.
func NewNetChannel(conn net.Conn) *NetChannel {
	return &NetChannel{conn: conn, rdr: bufio.NewReader(conn)}
}

func (c *NetChannel) Write(p []byte) (int, error) { return c.conn.Write(p) }

// Pump reads from the channel forever, feeding every chunk into conn and
// waking src so the Loop's Wait() call returns. It exits when the
// connection errors.
func (c *NetChannel) Pump(conn *Conn, src wakeupSource) {
	buf := make([]byte, 4096)
	for {
		n, err := c.rdr.Read(buf)
		if n > 0 {
			conn.Feed(buf[:n])
			src.WakeForEvents()
		}
		if err != nil {
			conn.SignalError("channel read", err.Error())
			return
		}
	}
}

// NewWakeupSource is the exported constructor for the platform-appropriate
// wakeupSource, used by cmd/gdbstub.
func NewWakeupSource() (wakeupSource, error) {
	return newWakeupSource()
}
