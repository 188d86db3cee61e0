package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/gscan/machine/grbl"
)

func TestReadProgram(t *testing.T) {
	prog, err := readProgram(strings.NewReader("%\n$X\n g21 g90 (mm)\n\n$J=G91 X10 F100\nG1 X1.5 ; cut\n%\n"), grbl.DefaultBufferSize)
	require.NoError(t, err)

	var lines []int
	var enc []string
	for _, l := range prog {
		lines = append(lines, l.Line)
		enc = append(enc, l.Cmd.Encode())
	}
	assert.Equal(t, []int{2, 3, 5, 6}, lines)
	assert.Equal(t, []string{"$X\n", "G21G90\n", "$J=G91X10F100\n", "G1X1.5\n"}, enc)

	assert.IsType(t, &grbl.Line{}, prog[0].Cmd)
	assert.IsType(t, &grbl.Block{}, prog[1].Cmd)

	_, err = readProgram(strings.NewReader("G0 X0\nG0 G1 X1\n"), grbl.DefaultBufferSize)
	assert.EqualError(t, err, "line 2: multiple words from modal group motion")

	long := "$" + strings.Repeat("A", grbl.DefaultBufferSize)
	_, err = readProgram(strings.NewReader("G0 X0\n"+long+"\n"), grbl.DefaultBufferSize)
	assert.ErrorIs(t, err, grbl.ErrCommandTooLong)
	assert.EqualError(t, err, "line 2: grbl: command exceeds receive buffer size")

	// the limit applies to the encoded line, newline included
	prog, err = readProgram(strings.NewReader("G0X10\n"), 6)
	require.NoError(t, err)
	assert.Len(t, prog, 1)
	_, err = readProgram(strings.NewReader("G0X10\n"), 5)
	assert.ErrorIs(t, err, grbl.ErrCommandTooLong)
}

func TestStreamProgram(t *testing.T) {
	prog, err := readProgram(strings.NewReader("G0 X0\nG1 X1\nG1 X2\n"), grbl.DefaultBufferSize)
	require.NoError(t, err)

	tr := &sendTracker{lines: make(map[grbl.Command]int)}
	m := &fakeMachine{sink: tr, reject: map[string]string{"G1X1": "33"}}

	var out bytes.Buffer
	err = streamProgram(context.Background(), m, nil, tr, prog, &out)
	assert.EqualError(t, err, "1 of 3 lines failed")
	assert.Equal(t, "line 2: G1X1: grbl: error:33\n", out.String())
	assert.Len(t, m.sent, 3)

	tr = &sendTracker{lines: make(map[grbl.Command]int)}
	m = &fakeMachine{sink: tr}
	out.Reset()
	err = streamProgram(context.Background(), m, nil, tr, prog, &out)
	assert.NoError(t, err)
	assert.Equal(t, "sent 3 lines\n", out.String())
}

func TestStreamProgram_Closed(t *testing.T) {
	prog, err := readProgram(strings.NewReader("G0 X0\n"), grbl.DefaultBufferSize)
	require.NoError(t, err)

	// a machine that never answers
	tr := &sendTracker{lines: make(map[grbl.Command]int)}
	m := &fakeMachine{sink: grbl.NopSink{}}
	closed := make(chan struct{})
	close(closed)

	err = streamProgram(context.Background(), m, closed, tr, prog, &bytes.Buffer{})
	assert.ErrorIs(t, err, grbl.ErrClosed)

	m = &fakeMachine{closed: true}
	err = streamProgram(context.Background(), m, nil, tr, prog, &bytes.Buffer{})
	assert.ErrorIs(t, err, grbl.ErrClosed)
}

func TestWaiters(t *testing.T) {
	w := newWaiters()
	a, b, c := grbl.NewLine("$H"), grbl.NewLine("G0X0"), grbl.NewLine("G0X1")

	chA, chB, chC := w.Add(a), w.Add(b), w.Add(c)
	assert.Equal(t, 3, w.Len())

	w.ResponseOk(a)
	assert.NoError(t, <-chA)
	w.ResponseOk(a)

	w.ResponseError(b, &grbl.ResponseError{Code: "2"})
	assert.True(t, grbl.IsResponseError(<-chB, "2"))

	w.Disconnected()
	assert.ErrorIs(t, <-chC, grbl.ErrClosed)
	assert.Equal(t, 0, w.Len())

	w.Add(a)
	w.Remove(a)
	assert.Equal(t, 0, w.Len())
}
