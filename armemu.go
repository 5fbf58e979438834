// This file is part of armemu.
//
// armemu is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armemu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armemu.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cortexm/armemu/arm"
	"github.com/cortexm/armemu/hostterm"
	"github.com/cortexm/armemu/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses the command line, loads the firmware image named by the final
// argument, and drives the machine to completion. It returns the process
// exit code rather than calling os.Exit directly, so that it can be
// exercised without actually terminating the test binary.
func run(args []string) int {
	var (
		flashKB   = flag.Int("flash", 256, "flash image size in KB")
		ramKB     = flag.Int("ram", 16, "SRAM size in KB")
		pagesize  = flag.Int("pagesize", 1024, "flash erase page size in bytes")
		isaName   = flag.String("isa", "m4", "Cortex-M profile to emulate: m0 or m4")
		loglevel  = flag.String("loglevel", "warning", "log level: error, warning, calls, calls_sp, instrs")
		gdbAddr   = flag.String("gdb", "", "host:port to accept a GDB remote-serial-protocol connection on (not yet implemented)")
		verbose   = flag.Bool("v", false, "echo the diagnostic log to stderr on exit")
	)
	flag.CommandLine.Parse(args)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: armemu [flags] <firmware.bin>")
		flag.PrintDefaults()
		return 2
	}

	level, ok := logger.ParseLevel(*loglevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "armemu: unrecognised log level %q\n", *loglevel)
		return 2
	}

	isa, ok := parseISA(*isaName)
	if !ok {
		fmt.Fprintf(os.Stderr, "armemu: unrecognised isa %q (want m0 or m4)\n", *isaName)
		return 2
	}

	if *gdbAddr != "" {
		logger.Logf(logger.LevelWarn, "armemu", "--gdb=%s requested but the remote-serial-protocol server is not implemented in this build", *gdbAddr)
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "armemu: %s\n", err)
		return 1
	}

	m, err := arm.Create(uint32(*flashKB)*1024, uint32(*pagesize), uint32(*ramKB)*1024, isa, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armemu: %s\n", err)
		return 1
	}
	m.Load(image)

	console, err := hostterm.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "armemu: could not put terminal into raw mode: %s\n", err)
		return 1
	}
	defer console.Close()
	m.SetHostConsole(console, console)

	if err := m.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "armemu: %s\n", err)
		return 1
	}

	res := m.Run()

	if *verbose {
		logger.Write(os.Stderr)
	}

	if res.Fatal() {
		fmt.Fprintf(os.Stderr, "armemu: %s\n", res)
		return 1
	}
	return 0
}

func parseISA(s string) (arm.ISALevel, bool) {
	switch s {
	case "m0":
		return arm.ARMv6M, true
	case "m4":
		return arm.ARMv7M, true
	}
	return arm.ARMv6M, false
}
