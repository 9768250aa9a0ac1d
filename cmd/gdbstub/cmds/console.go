package cmds

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-delve/liner"

	"github.com/twibstub/gdbstub/pkg/gdbstub"
	"github.com/twibstub/gdbstub/pkg/stubconfig"
)

// runConsole drives an interactive REPL against a local loopback device,
// for operators who want to exercise qRcmd-equivalent commands without a
// GDB client attached.
func runConsole(conf *stubconfig.Config) error {
	device := gdbstub.NewLoopbackDeviceInterface()
	dbg, err := device.AttachProcess(0)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()

	fmt.Println("gdbstub console, type 'help' for commands, Ctrl-D to exit")
	for {
		input, err := line.Prompt("(gdbstub) ")
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if err := runConsoleLine(dbg, conf, input); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// runConsoleLine handles a single console line directly against dbg. A
// first word that exactly matches one of conf.Aliases' abbreviations is
// replaced by its full command name; unlike qRcmd, no prefix resolution is
// done.
func runConsoleLine(dbg gdbstub.Debugger, conf *stubconfig.Config, input string) error {
	fields := strings.Fields(input)
	name := fields[0]
	for full, abbrevs := range conf.Aliases {
		for _, a := range abbrevs {
			if a == name {
				name = full
			}
		}
	}

	switch name {
	case "help":
		fmt.Println("commands: help, break, regs, quit")
	case "break":
		return dbg.BreakProcess()
	case "regs":
		ctx, err := dbg.GetThreadContext(1)
		if err != nil {
			return err
		}
		fmt.Printf("pc=%#x sp=%#x x0=%#x\n", ctx.PC(), ctx.SP(), ctx.X(0))
	case "quit":
		return io.EOF
	default:
		fmt.Printf("unknown command %q\n", name)
	}
	return nil
}
