package gdbstub

import "testing"

func TestRegistry_AddProcessKeepsPidsSorted(t *testing.T) {
	r := newRegistry()
	r.AddProcess(newProcess(30, nil))
	r.AddProcess(newProcess(10, nil))
	r.AddProcess(newProcess(20, nil))

	procs := r.Processes()
	if len(procs) != 3 {
		t.Fatalf("expected 3 processes; got %d", len(procs))
	}
	want := []uint64{10, 20, 30}
	for i, p := range procs {
		if p.PID != want[i] {
			t.Errorf("index %d: got pid %d; want %d", i, p.PID, want[i])
		}
	}
}

func TestRegistry_LookupByPidZeroUsesCurrentProcess(t *testing.T) {
	r := newRegistry()
	p := newProcess(5, nil)
	th := &Thread{Process: p, ThreadID: 1}
	p.Threads[1] = th
	r.AddProcess(p)
	r.SetCurrent(th)

	got, ok := r.Lookup(0, 1)
	if !ok || got != th {
		t.Fatalf("expected lookup to resolve via current process")
	}
}

func TestRegistry_LookupTidZeroReturnsAnyThread(t *testing.T) {
	r := newRegistry()
	p := newProcess(5, nil)
	th := &Thread{Process: p, ThreadID: 7}
	p.Threads[7] = th
	r.AddProcess(p)

	got, ok := r.Lookup(5, 0)
	if !ok || got != th {
		t.Fatalf("expected tid=0 to resolve to the process's only thread")
	}
}

func TestRegistry_RemoveProcessReassignsCurrent(t *testing.T) {
	r := newRegistry()
	p1 := newProcess(1, nil)
	t1 := &Thread{Process: p1, ThreadID: 1}
	p1.Threads[1] = t1
	p2 := newProcess(2, nil)
	t2 := &Thread{Process: p2, ThreadID: 1}
	p2.Threads[1] = t2
	r.AddProcess(p1)
	r.AddProcess(p2)
	r.SetCurrent(t1)

	r.RemoveProcess(1)
	cur := r.Current()
	if cur == nil || cur.Process.PID != 2 {
		t.Fatalf("expected current to reassign to remaining process 2; got %v", cur)
	}
}

func TestRegistry_RemoveLastProcessClearsCurrent(t *testing.T) {
	r := newRegistry()
	p := newProcess(1, nil)
	th := &Thread{Process: p, ThreadID: 1}
	p.Threads[1] = th
	r.AddProcess(p)
	r.SetCurrent(th)

	r.RemoveProcess(1)
	if r.Current() != nil {
		t.Fatalf("expected current to be nil once the last process is removed")
	}
}

func TestRegistry_OnThreadExitReassignsCurrent(t *testing.T) {
	r := newRegistry()
	p := newProcess(1, nil)
	t1 := &Thread{Process: p, ThreadID: 1}
	t2 := &Thread{Process: p, ThreadID: 2}
	p.Threads[1] = t1
	p.Threads[2] = t2
	r.AddProcess(p)
	r.SetCurrent(t1)

	r.OnThreadExit(1, 1)
	cur := r.Current()
	if cur == nil || cur.ThreadID != 2 {
		t.Fatalf("expected current to reassign to thread 2; got %v", cur)
	}
}

func TestProcess_SortedThreadIDs(t *testing.T) {
	p := newProcess(1, nil)
	p.Threads[5] = &Thread{Process: p, ThreadID: 5}
	p.Threads[1] = &Thread{Process: p, ThreadID: 1}
	p.Threads[3] = &Thread{Process: p, ThreadID: 3}

	ids := p.sortedThreadIDs()
	want := []uint64{1, 3, 5}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("index %d: got %d; want %d", i, id, want[i])
		}
	}
}
