package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func resetFlags() {
	wire = false
	dispatch = false
	events = false
}

func TestMakeLogger_disabledUsesPanicLevel(t *testing.T) {
	entry := makeLogger(false, logrus.Fields{"foo": "bar"})
	if entry.Logger.Level != logrus.PanicLevel {
		t.Fatalf("expected PanicLevel when flag is false; got %v", entry.Logger.Level)
	}
	if entry.Data["foo"] != "bar" {
		t.Fatalf("expected fields to carry through; got %v", entry.Data)
	}
}

func TestMakeLogger_enabledUsesDebugLevel(t *testing.T) {
	entry := makeLogger(true, logrus.Fields{"foo": "bar"})
	if entry.Logger.Level != logrus.DebugLevel {
		t.Fatalf("expected DebugLevel when flag is true; got %v", entry.Logger.Level)
	}
}

func TestSetup_withoutLogDiscardsOutput(t *testing.T) {
	defer resetFlags()
	if err := Setup(false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Wire() || Dispatch() || Events() {
		t.Fatalf("expected no categories enabled without --log")
	}
}

func TestSetup_withoutLogRejectsLogOutput(t *testing.T) {
	defer resetFlags()
	if err := Setup(false, "wire"); err != errLogstrWithoutLog {
		t.Fatalf("expected errLogstrWithoutLog; got %v", err)
	}
}

func TestSetup_defaultsToDispatch(t *testing.T) {
	defer resetFlags()
	if err := Setup(true, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Dispatch() {
		t.Fatalf("expected dispatch category to be enabled by default")
	}
	if Wire() || Events() {
		t.Fatalf("expected only dispatch category enabled")
	}
}

func TestSetup_parsesCategoryList(t *testing.T) {
	defer resetFlags()
	if err := Setup(true, "wire,events"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Wire() || !Events() {
		t.Fatalf("expected wire and events enabled")
	}
	if Dispatch() {
		t.Fatalf("expected dispatch to stay disabled")
	}
}
