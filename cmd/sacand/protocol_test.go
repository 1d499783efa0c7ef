package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		msg  string
		want Command
	}{
		{"+0", Increment{Amount: 0}},
		{"+5", Increment{Amount: 5}},
		{"-3", Decrement{Amount: 3}},
		{"", NoOp{}},
		{"x", NoOp{}},
		{"5", NoOp{}},
		{" +5", NoOp{}},

		// Malformed amounts read as zero.
		{"+abc", Increment{Amount: 0}},
		{"-", Decrement{Amount: 0}},
		{"+", Increment{Amount: 0}},
		{"+-5", Increment{Amount: 0}},
		{"+ 5", Increment{Amount: 0}},
		{"+5 ", Increment{Amount: 0}},
		{"+99999999999", Increment{Amount: 0}},

		// One trailing line terminator is tolerated.
		{"+5\n", Increment{Amount: 5}},
		{"-12\r\n", Decrement{Amount: 12}},
		{"+5\n\n", Increment{Amount: 0}},
		{"\n", NoOp{}},

		{"+4294967295", Increment{Amount: 4294967295}},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.msg))
		})
	}
}

func TestCommand_Apply(t *testing.T) {
	assert.Equal(t, 84.37, roundPercent(Increment{Amount: 5}.Apply(79.37)))
	assert.Equal(t, 74.37, roundPercent(Decrement{Amount: 5}.Apply(79.37)))
	assert.Equal(t, 79.37, NoOp{}.Apply(79.37))
	assert.Equal(t, 79.37, Increment{}.Apply(79.37))
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "Increment(5)", Increment{Amount: 5}.String())
	assert.Equal(t, "Decrement(3)", Decrement{Amount: 3}.String())
	assert.Equal(t, "NoOp()", NoOp{}.String())
}
