package main

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// Control Protocol - one message per connection
// ============================================================================
// A client connects, writes a payload and closes its write side. The daemon
// never answers on the socket; the notification is the only feedback.
//
// Grammar (first byte decides):
//   +<uint>   raise perceived volume by <uint> percent
//   -<uint>   lower perceived volume by <uint> percent
//   anything  no-op (re-show the current level)
//
// An amount that does not parse as an unsigned 32-bit decimal is read as 0,
// so "+abc" re-shows the current level instead of failing. One trailing
// line terminator is dropped so `echo +5 | socat ...` behaves as expected.
// ============================================================================

// Command is a parsed control message.
type Command interface {
	commandMarker()
	String() string

	// Apply returns the target percentage for a current percentage.
	Apply(percent float64) float64
}

// Increment raises the perceived volume by Amount percent.
type Increment struct {
	Amount uint32
}

func (Increment) commandMarker()                  {}
func (c Increment) String() string                { return fmt.Sprintf("Increment(%d)", c.Amount) }
func (c Increment) Apply(percent float64) float64 { return percent + float64(c.Amount) }

// Decrement lowers the perceived volume by Amount percent.
type Decrement struct {
	Amount uint32
}

func (Decrement) commandMarker()                  {}
func (c Decrement) String() string                { return fmt.Sprintf("Decrement(%d)", c.Amount) }
func (c Decrement) Apply(percent float64) float64 { return percent - float64(c.Amount) }

// NoOp leaves the volume alone.
type NoOp struct{}

func (NoOp) commandMarker()                {}
func (NoOp) String() string                { return "NoOp()" }
func (NoOp) Apply(percent float64) float64 { return percent }

// ParseCommand interprets one control message. It never fails.
func ParseCommand(msg string) Command {
	msg = strings.TrimSuffix(msg, "\n")
	msg = strings.TrimSuffix(msg, "\r")
	if msg == "" {
		return NoOp{}
	}

	switch msg[0] {
	case '+':
		return Increment{Amount: parseAmount(msg[1:])}
	case '-':
		return Decrement{Amount: parseAmount(msg[1:])}
	default:
		return NoOp{}
	}
}

func parseAmount(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
