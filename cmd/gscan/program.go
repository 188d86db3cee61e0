package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/mastercactapus/gscan/gcode"
	"github.com/mastercactapus/gscan/machine/grbl"
)

type programLine struct {
	Line int
	Cmd  grbl.Command
}

// readProgram converts G-code text to commands. Lines the block parser does
// not understand (`$` settings, jogging, etc.) are passed through verbatim.
// A block that parses but is invalid, or any line longer than maxLen bytes
// once encoded, fails the whole program so that nothing is sent.
func readProgram(r io.Reader, maxLen int) ([]programLine, error) {
	var res []programLine
	p := gcode.NewParser(r)
	for {
		b, err := p.Read()
		if err == io.EOF {
			return res, nil
		}
		var se *gcode.SyntaxError
		var l programLine
		switch {
		case errors.As(err, &se):
			l = programLine{Line: se.Line, Cmd: grbl.NewLine(se.Text)}
		case err != nil:
			return nil, err
		default:
			err = b.Validate()
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", p.Line(), err)
			}
			l = programLine{Line: p.Line(), Cmd: grbl.NewBlock(b)}
		}
		if len(l.Cmd.Encode()) > maxLen {
			return nil, fmt.Errorf("line %d: %w", l.Line, grbl.ErrCommandTooLong)
		}
		res = append(res, l)
	}
}
