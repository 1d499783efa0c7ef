package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	flag "github.com/spf13/pflag"
)

// ============================================================================
// sacanctl - command-line client for the sacand control socket
// ============================================================================
// Usage:
//   sacanctl up [N]      raise perceived volume by N percent (default 5)
//   sacanctl down [N]    lower perceived volume by N percent (default 5)
//   sacanctl show        re-show the current level
//   sacanctl send RAW    send RAW unchanged
//
// The daemon never replies. The client writes the message, closes its write
// side and exits.
// ============================================================================

const defaultStep = 5

func main() {
	fs := flag.NewFlagSet("sacanctl", flag.ContinueOnError)
	socketPath := fs.StringP("socket", "s", filepath.Join(xdg.RuntimeDir, "sacand"), "Control socket path")
	timeout := fs.Duration("timeout", 2*time.Second, "Connect and write timeout")
	fs.Usage = printUsage

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	msg, err := buildMessage(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := send(*socketPath, msg, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// buildMessage turns command-line arguments into one control message.
func buildMessage(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("missing command")
	}

	switch args[0] {
	case "up", "+":
		n, err := stepArg(args[1:])
		if err != nil {
			return "", err
		}
		return "+" + strconv.FormatUint(uint64(n), 10), nil

	case "down", "-":
		n, err := stepArg(args[1:])
		if err != nil {
			return "", err
		}
		return "-" + strconv.FormatUint(uint64(n), 10), nil

	case "show":
		return "", nil

	case "send":
		if len(args) != 2 {
			return "", errors.New("send requires exactly one argument")
		}
		return args[1], nil

	default:
		return "", fmt.Errorf("unknown command: %s", args[0])
	}
}

func stepArg(args []string) (uint32, error) {
	switch len(args) {
	case 0:
		return defaultStep, nil
	case 1:
		n, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid step %q: must be a non-negative integer", args[0])
		}
		return uint32(n), nil
	default:
		return 0, errors.New("too many arguments")
	}
}

// send delivers msg and half-closes the connection so the daemon sees the
// end of the message.
func send(socketPath, msg string, timeout time.Duration) error {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := conn.Write([]byte(msg)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return fmt.Errorf("close write: %w", err)
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sacanctl - nudge the volume mirrored by sacand

Usage:
  sacanctl [options] <command> [args]

Options:
  -s, --socket PATH    Control socket path (default: $XDG_RUNTIME_DIR/sacand)
      --timeout DUR    Connect and write timeout (default: 2s)

Commands:
  up, + [N]            Raise perceived volume by N percent (default 5)
  down, - [N]          Lower perceived volume by N percent (default 5)
  show                 Re-show the current level
  send RAW             Send RAW as the message, unchanged

Examples:
  sacanctl up
  sacanctl down 10
  sacanctl -s /run/user/1000/sacand show
`)
}
