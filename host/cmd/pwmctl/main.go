// Command pwmctl drives the PWM firmware over its USB serial port.
//
//	pwmctl -device /dev/ttyACM0 begin 60
//	pwmctl duty 0 42.5
//	pwmctl query 0
//	pwmctl end
//
// Without a command it starts an interactive prompt. -sim runs the firmware
// command set against simulated timers instead of a board.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BlaineKTMO/tagtronics/config"
	"github.com/BlaineKTMO/tagtronics/core"
	"github.com/BlaineKTMO/tagtronics/host/mcu"
	"github.com/BlaineKTMO/tagtronics/host/serial"
	"github.com/BlaineKTMO/tagtronics/targets/sim"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", 0, "Baud rate (ignored for USB CDC)")
	configPath = flag.String("config", "", "JSON configuration file")
	useSim     = flag.Bool("sim", false, "Talk to simulated timers instead of a board")
	timeout    = flag.Duration("timeout", 2*time.Second, "Response timeout")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

var errUsage = errors.New("usage")

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	conn, err := connect(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	conn.SetTimeout(*timeout)

	if args := flag.Args(); len(args) > 0 {
		if err := run(conn, args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	interactive(conn, os.Stdin, os.Stdout)
}

func connect(cfg *config.Config) (*mcu.MCU, error) {
	conn := mcu.NewMCU()
	if *useSim {
		board := sim.NewBoard(cfg.Sim.Latency)
		c, err := cfg.NewController(core.WithPlatform(board.Platform()))
		if err != nil {
			return nil, err
		}
		if *verbose {
			core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
			core.SetDebugEnabled(true)
		}
		core.InitPWMCommands(c)
		conn.Attach(sim.NewDevice(core.GetGlobalRegistry()))
		return conn, nil
	}

	sc := serial.DefaultConfig(*device)
	if cfg.Serial.Port != "" && !isFlagSet("device") {
		sc.Device = cfg.Serial.Port
	}
	sc.Baud = cfg.Serial.Baud
	if *baud != 0 {
		sc.Baud = *baud
	}
	sc.ReadTimeout = cfg.Serial.TimeoutMs
	if *verbose {
		fmt.Fprintf(os.Stderr, "Connecting to %s at %d baud...\n", sc.Device, sc.Baud)
	}
	if err := conn.ConnectWithConfig(sc); err != nil {
		return nil, err
	}
	return conn, nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func interactive(conn *mcu.MCU, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp(out)
			continue
		}
		if err := run(conn, parts, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

// run executes one command line
func run(conn *mcu.MCU, args []string, out io.Writer) error {
	switch args[0] {
	case "begin":
		freq := uint64(core.DefaultFrequencyHz)
		if len(args) > 1 {
			var err error
			if freq, err = strconv.ParseUint(args[1], 10, 32); err != nil {
				return fmt.Errorf("bad frequency %q: %w", args[1], err)
			}
		}
		if err := conn.Begin(uint32(freq)); err != nil {
			return err
		}
		fmt.Fprintf(out, "PWM running at %dHz\n", freq)

	case "duty":
		if len(args) != 3 {
			return fmt.Errorf("%w: duty <slot> <percent>", errUsage)
		}
		slot, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return fmt.Errorf("bad slot %q: %w", args[1], err)
		}
		percent, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("bad percent %q: %w", args[2], err)
		}
		return conn.SetDutyCycle(uint8(slot), percent)

	case "query":
		if len(args) != 2 {
			return fmt.Errorf("%w: query <slot>", errUsage)
		}
		slot, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return fmt.Errorf("bad slot %q: %w", args[1], err)
		}
		st, err := conn.Query(uint8(slot))
		if err != nil {
			return err
		}
		printStatus(out, st)

	case "end":
		return conn.End()

	case "dict":
		if conn.GetDictionary() == nil {
			if err := conn.RetrieveDictionary(); err != nil {
				return err
			}
		}
		conn.PrintDictionary(out)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
	}
	return nil
}

func printStatus(out io.Writer, st *mcu.Status) {
	if !st.Bound {
		fmt.Fprintf(out, "slot %d: D%d has no timer\n", st.Slot, st.Pin)
		return
	}
	state := "stopped"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(out, "slot %d: D%d %s CC%d %s period=%d compare=%d duty=%.3f%%\n",
		st.Slot, st.Pin, core.EngineID(st.Engine), st.Channel, state, st.Period, st.Compare, st.Percent())
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  begin [hz]          - Configure every slot (default 60Hz)")
	fmt.Fprintln(out, "  duty <slot> <pct>   - Set a slot's duty cycle")
	fmt.Fprintln(out, "  query <slot>        - Show a slot's binding and compare value")
	fmt.Fprintln(out, "  end                 - Disable every timer")
	fmt.Fprintln(out, "  dict                - Print the command dictionary")
	fmt.Fprintln(out, "  quit/exit/q         - Exit the program")
	fmt.Fprintln(out)
}
