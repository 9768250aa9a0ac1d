package gdbstub

import (
	"strings"
	"testing"
)

func TestQSupported_advertisesLibrariesAndMultiprocess(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "qSupported:multiprocess+")
	reply := ch.all()
	if !strings.Contains(reply, "multiprocess+") {
		t.Fatalf("expected multiprocess to be echoed back; got %q", reply)
	}
	if !strings.Contains(reply, "qXfer:libraries:read+") {
		t.Fatalf("expected the libraries xfer object to be advertised; got %q", reply)
	}
	if !s.MultiprocessEnabled {
		t.Fatalf("expected qSupported to enable multiprocess mode when the client requests it")
	}
}

func TestQC_beforeAnyAttachReturnsZero(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "qC")
	if !strings.Contains(ch.all(), "QC0") {
		t.Fatalf("expected QC0 with no current thread; got %q", ch.all())
	}
}

func TestQC_afterAttachReportsCurrentThread(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "vAttach;1")
	ch.written = nil
	sendPacket(s, "qC")
	if !strings.Contains(ch.all(), "QC1") {
		t.Fatalf("expected QC1 for the attached thread; got %q", ch.all())
	}
}

func TestQStartNoAckMode_disablesAckByte(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "QStartNoAckMode")
	if !strings.Contains(ch.all(), "OK") {
		t.Fatalf("expected OK; got %q", ch.all())
	}
	if s.Conn.AckEnabled() {
		t.Fatalf("expected ack mode to be disabled after QStartNoAckMode")
	}
}

func TestQThreadEvents_togglesFlag(t *testing.T) {
	s, _, _ := newTestStub(t)
	sendPacket(s, "QThreadEvents:1")
	if !s.ThreadEventsEnabled {
		t.Fatalf("expected QThreadEvents:1 to enable the flag")
	}
	sendPacket(s, "QThreadEvents:0")
	if s.ThreadEventsEnabled {
		t.Fatalf("expected QThreadEvents:0 to disable the flag")
	}
}

func TestQOffsets_fixedZero(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "qOffsets")
	if !strings.Contains(ch.all(), "Text=0;Data=0;Bss=0") {
		t.Fatalf("expected fixed zero offsets; got %q", ch.all())
	}
}

func TestRunQuery_unmatchedPrefixRepliesEmpty(t *testing.T) {
	s, ch, _ := newTestStub(t)
	sendPacket(s, "qSomethingUnknown")
	if !strings.HasSuffix(ch.all(), "$#00") {
		t.Fatalf("expected an empty reply for an unknown query; got %q", ch.all())
	}
}
