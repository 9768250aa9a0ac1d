package gdbstub

import (
	"fmt"
	"strings"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// rcmdHandler runs one qRcmd console command; it writes its textual
// response (already destined for hex-encoding by the caller) to reply.
type rcmdHandler func(s *Stub, args []string, reply *strings.Builder) error

// rcmdCommands is the console command table, keyed by full name; console
// lines resolve to a full name via a prefix trie so "h"/"he"/"hel" all
// reach "help", matching the abbreviation convention of gdb/lldb consoles.
var rcmdCommands = map[string]rcmdHandler{
	"help": rcmdHelp,
	"wait": rcmdWait,
	"eval": rcmdEval,
}

// rcmdTrie indexes rcmdCommands by name for prefix resolution. Built once;
// the command set is fixed at compile time.
var rcmdTrie = buildRcmdTrie()

func buildRcmdTrie() *trie.Trie {
	t := trie.New()
	for name := range rcmdCommands {
		t.Add(name, name)
	}
	return t
}

// qRcmdQuery implements "qRcmd,<hex-encoded line>". The line is split with
// bash-like quoting rules via cosiner/argv so quoted console arguments
// (e.g. eval "regs.x0 + 4") survive intact.
func (s *Stub) qRcmdQuery(args []byte) {
	line := string(decodeBytes(args))
	fields, err := argv.Argv(line, nil, nil)
	if err != nil || len(fields) == 0 || len(fields[0]) == 0 {
		s.Conn.RespondError(0x01)
		return
	}
	words := fields[0]
	name, ok := resolveRcmdName(words[0])
	if !ok {
		s.Conn.RespondError(0x01)
		return
	}
	var out strings.Builder
	if err := rcmdCommands[name](s, words[1:], &out); err != nil {
		s.Conn.RespondError(0x01)
		return
	}
	var buf Buffer
	encodeString(&buf, out.String())
	s.Conn.Respond(buf.Read())
}

// resolveRcmdName expands an unambiguous prefix of a console command name
// to its full name.
func resolveRcmdName(word string) (string, bool) {
	if _, ok := rcmdCommands[word]; ok {
		return word, true
	}
	matches := rcmdTrie.PrefixSearch(word)
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

func rcmdHelp(s *Stub, args []string, reply *strings.Builder) error {
	reply.WriteString("commands: help, wait, eval <expr>\n")
	return nil
}

// rcmdWait drains the events already queued for every attached process and
// reports the resulting StopReason. It does not block: if no stop event has
// arrived yet, it reports "no pending stop" rather than waiting for one.
func rcmdWait(s *Stub, args []string, reply *strings.Builder) error {
	for _, p := range s.Registry.Processes() {
		s.ingestEvents(p)
	}
	if s.StopReason == "" {
		reply.WriteString("no pending stop\n")
		return nil
	}
	fmt.Fprintf(reply, "stop: %s\n", s.StopReason)
	return nil
}

// rcmdEval evaluates a small Starlark expression against the current
// thread's register snapshot and memory, exposed as regs.xN/regs.sp/regs.pc
// and mem(addr, len). Sandboxed: no file or network builtins are exposed.
func rcmdEval(s *Stub, args []string, reply *strings.Builder) error {
	if len(args) == 0 {
		return fmt.Errorf("eval requires an expression")
	}
	t := s.Registry.Current()
	if t == nil {
		return fmt.Errorf("no current thread")
	}
	ctx, err := t.Process.Debugger.GetThreadContext(t.ThreadID)
	if err != nil {
		return err
	}
	regFields := make(starlark.StringDict, 33)
	for i := 0; i < 31; i++ {
		regFields[fmt.Sprintf("x%d", i)] = starlark.MakeUint64(ctx.X(i))
	}
	regFields["sp"] = starlark.MakeUint64(ctx.SP())
	regFields["pc"] = starlark.MakeUint64(ctx.PC())

	env := starlark.StringDict{
		"regs": starlarkstruct.FromStringDict(starlarkstruct.Default, regFields),
		"mem":  starlark.NewBuiltin("mem", rcmdEvalMemBuiltin(t)),
	}
	thread := &starlark.Thread{Name: "qrcmd-eval"}
	v, err := starlark.Eval(thread, "qrcmd-eval", strings.Join(args, " "), env)
	if err != nil {
		return err
	}
	fmt.Fprintf(reply, "%s\n", v.String())
	return nil
}

func rcmdEvalMemBuiltin(t *Thread) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("mem(addr, len) takes exactly two arguments")
		}
		addr, ok := starlarkUint64(args[0])
		if !ok {
			return nil, fmt.Errorf("mem: addr must be an int")
		}
		length, ok := starlarkUint64(args[1])
		if !ok {
			return nil, fmt.Errorf("mem: len must be an int")
		}
		data, err := t.Process.Debugger.ReadMemory(addr, length)
		if err != nil {
			return nil, err
		}
		return starlark.String(fmt.Sprintf("%x", data)), nil
	}
}

// starlarkUint64 extracts an unsigned integer from a starlark Value,
// rejecting anything that isn't a starlark.Int.
func starlarkUint64(v starlark.Value) (uint64, bool) {
	iv, ok := v.(starlark.Int)
	if !ok {
		return 0, false
	}
	return iv.Uint64()
}
