package gdbstub

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// connState is the inbound framing automaton's current state.
type connState int

const (
	stateWaitOpen connState = iota
	stateReadData
	stateEscape
	stateChecksumHi
	stateChecksumLo
)

// ProtocolError reports a fatal framing violation: a bad packet open byte,
// or a bad checksum while ack mode is disabled.
type ProtocolError struct {
	Context string
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("gdb rsp protocol error during %s: %s", e.Context, e.Detail)
}

// Channel is the outbound half of the duplex byte stream to the GDB
// client; Conn writes framed packets and raw ack bytes to it. Inbound
// bytes reach Conn through Feed, fed by whatever goroutine is pumping the
// underlying connection (see NetChannel.Pump).
type Channel interface {
	Write(p []byte) (int, error)
}

// Conn implements RSP framing over a Channel: escaping, checksumming, ack
// mode, and the inbound state machine. process() and respond() are
// mutually exclusive; errorFlag is sticky once set.
type Conn struct {
	mu sync.Mutex

	state      connState
	message    []byte
	checksum   uint8
	cksumHi    byte
	ackEnabled bool

	errorFlag bool
	errorCond *sync.Cond

	in   []byte // bytes read from the channel not yet consumed by process()
	out  Buffer
	sink Channel

	log *logrus.Entry
}

// NewConn returns a Conn with ack mode enabled, as required at session
// start.
func NewConn(log *logrus.Entry) *Conn {
	c := &Conn{
		ackEnabled: true,
		log:        log,
	}
	c.errorCond = sync.NewCond(&c.mu)
	return c
}

// SetAckEnabled toggles ack-mode framing; called from QStartNoAckMode.
func (c *Conn) SetAckEnabled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ackEnabled = v
}

// AckEnabled reports the current ack-mode state.
func (c *Conn) AckEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ackEnabled
}

// SignalError marks the connection fatally broken and wakes any waiters.
func (c *Conn) SignalError(context, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorFlag = true
	if c.log != nil {
		c.log.Errorf("connection error during %s: %s", context, detail)
	}
	c.errorCond.Broadcast()
}

// Errored reports whether SignalError has ever been called.
func (c *Conn) Errored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorFlag
}

// WaitError blocks until Errored() is true.
func (c *Conn) WaitError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.errorFlag {
		c.errorCond.Wait()
	}
}

// Feed appends freshly read bytes to the connection's pending input. The
// goroutine pumping the underlying channel (see NetChannel.Pump) calls this
// after each read.
func (c *Conn) Feed(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in = append(c.in, p...)
}

// Process drains pending input through the framing state machine. It
// returns the complete message buffer for the first fully-received packet,
// or nil if none is complete yet. interrupted reports whether a 0x03 byte
// was seen; framing state is left untouched by it so the next '$' resumes
// cleanly. The caller must fully consume the returned buffer before the
// next call; its backing array is reused.
func (c *Conn) Process() (msg []byte, interrupted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.in) > 0 {
		b := c.in[0]
		c.in = c.in[1:]

		switch c.state {
		case stateWaitOpen:
			switch {
			case b == '+':
				// ack byte, ignored
			case b == 0x03:
				return nil, true
			case b == '$':
				c.message = c.message[:0]
				c.checksum = 0
				c.state = stateReadData
			default:
				c.raiseProtocolError("wait-open", fmt.Sprintf("unexpected byte 0x%02x", b))
				return nil, false
			}

		case stateReadData:
			switch b {
			case '#':
				c.state = stateChecksumHi
			case '}':
				c.checksum += b
				c.state = stateEscape
			default:
				c.checksum += b
				c.message = append(c.message, b)
			}

		case stateEscape:
			c.checksum += b
			c.message = append(c.message, b^0x20)
			c.state = stateReadData

		case stateChecksumHi:
			c.cksumHi = b
			c.state = stateChecksumLo

		case stateChecksumLo:
			c.state = stateWaitOpen
			want, ok := decodeHexByte(c.cksumHi, b)
			if !ok {
				c.raiseProtocolError("checksum", "non-hex checksum digit")
				return nil, false
			}
			if want == c.checksum {
				if c.ackEnabled {
					c.writeRaw('+')
				}
				out := make([]byte, len(c.message))
				copy(out, c.message)
				return out, false
			}
			if c.ackEnabled {
				c.writeRaw('-')
				continue
			}
			c.raiseProtocolError("checksum", "checksum mismatch with ack disabled")
			return nil, false
		}
	}
	return nil, false
}

// raiseProtocolError must be called with c.mu held.
func (c *Conn) raiseProtocolError(context, detail string) {
	c.errorFlag = true
	if c.log != nil {
		c.log.Errorf("protocol error during %s: %s", context, detail)
	}
	c.errorCond.Broadcast()
}

// writeRaw must be called with c.mu held; it appends a single byte to the
// outbound buffer and flushes immediately (single-byte acks bypass framing).
func (c *Conn) writeRaw(b byte) {
	c.out.Write(b)
	c.flushLocked()
}

// flushLocked must be called with c.mu held.
func (c *Conn) flushLocked() {
	if c.out.ReadAvailable() == 0 {
		return
	}
	// the caller installs the sink via SetSink; until then bytes queue up
	if c.sink != nil {
		c.sink.Write(c.out.Read())
	}
	c.out.MarkRead(c.out.ReadAvailable())
	c.out.Clear()
}

// sink is the underlying output channel; set once at connection setup.
func (c *Conn) SetSink(w Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = w
}

// Respond frames buf as a complete packet ($...#cc) and writes it to the
// sink: each byte in {'#','$','}','*'} is escaped with '}' and XORed with
// 0x20; the checksum is the 8-bit sum of the escaped-and-original bytes as
// actually transmitted, rendered as two lowercase hex nybbles.
func (c *Conn) Respond(buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cksum uint8
	c.out.Write('$')
	for _, b := range buf {
		if b == '#' || b == '$' || b == '}' || b == '*' {
			c.out.Write('}')
			cksum += '}'
			b ^= 0x20
		}
		c.out.Write(b)
		cksum += b
	}
	c.out.Write('#', encodeHexNybble(cksum>>4), encodeHexNybble(cksum&0xf))
	c.flushLocked()
}

// RespondEmpty sends the empty packet, GDB's "unsupported" reply.
func (c *Conn) RespondEmpty() {
	c.Respond(nil)
}

// RespondOK sends "OK".
func (c *Conn) RespondOK() {
	c.Respond([]byte("OK"))
}

// RespondError sends "Exx" with code rendered as two lowercase hex nybbles.
func (c *Conn) RespondError(code uint8) {
	buf := []byte{'E', encodeHexNybble(code >> 4), encodeHexNybble(code & 0xf)}
	c.Respond(buf)
}
