package cmds

import (
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twibstub/gdbstub/pkg/gdbstub"
	"github.com/twibstub/gdbstub/pkg/logflags"
	"github.com/twibstub/gdbstub/pkg/stubconfig"
	"github.com/twibstub/gdbstub/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of categories that should produce debug output.
	logOutput string
	// listenAddr is the GDB-facing listen address.
	listenAddr string
	// aliasFlags holds repeated --alias "name 'abbrev'..." flag values.
	aliasFlags []string

	rootCommand *cobra.Command

	conf *stubconfig.Config
)

const gdbstubCommandLongDesc = `gdbstub bridges a remote debug-monitor RPC to a local GDB client.

It speaks the GDB Remote Serial Protocol on one side and drives an
already-connected device interface on the other, translating attach,
continue, memory and register requests into RPC calls and relaying
debug events back as GDB stop replies.`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = stubconfig.LoadConfig()

	rootCommand = &cobra.Command{
		Use:   "gdbstub",
		Short: "gdbstub is a GDB Remote Serial Protocol stub.",
		Long:  gdbstubCommandLongDesc,
	}

	rootCommand.PersistentFlags().StringVarP(&listenAddr, "listen", "l", conf.Listen, "Address to listen on for the GDB client.")
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable stub logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of log categories: wire, dispatch, events.")
	rootCommand.PersistentFlags().StringArrayVarP(&aliasFlags, "alias", "", nil, "Add a 'gdbstub console' command alias, e.g. --alias \"help 'h' '?'\".")
	if listenAddr == "" {
		listenAddr = "localhost:2345"
	}
	rootCommand.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		for _, spec := range aliasFlags {
			conf.Aliases = stubconfig.ParseAliasFlag(conf.Aliases, spec)
		}
	}

	rootCommand.AddCommand(serveCommand())
	rootCommand.AddCommand(versionCommand())
	rootCommand.AddCommand(consoleCommand())

	return rootCommand
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for a GDB connection and run the stub.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logflags.Setup(log, logOutput); err != nil {
				return err
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return err
			}
			defer ln.Close()
			fmt.Fprintf(os.Stderr, "listening on %s\n", ln.Addr())

			netConn, err := ln.Accept()
			if err != nil {
				return err
			}
			defer netConn.Close()

			ch := gdbstub.NewNetChannel(netConn)
			conn := gdbstub.NewConn(wireLogger())
			conn.SetSink(ch)

			device := gdbstub.NewLoopbackDeviceInterface()
			stub := gdbstub.NewStub(device, conn, dispatchLogger(), dispatchLogger(), eventsLogger())
			stub.Features = conf.Features

			src, err := gdbstub.NewWakeupSource()
			if err != nil {
				return err
			}
			stub.WakeSrc = src
			loop := gdbstub.NewLoop(src, conn, stub)
			go ch.Pump(conn, src)
			return loop.Run()
		},
	}
}

func versionCommand() *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.StubVersion.String())
			if verbose {
				fmt.Println(version.BuildInfo())
			}
		},
	}
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print build details in addition to the version.")
	return c
}

func consoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactively issue qRcmd-equivalent commands against the local device interface.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(conf)
		},
	}
}

func wireLogger() *logrus.Entry     { return logflags.WireLogger() }
func dispatchLogger() *logrus.Entry { return logflags.DispatchLogger() }
func eventsLogger() *logrus.Entry   { return logflags.EventsLogger() }
