package grbl

import (
	"strings"

	"github.com/mastercactapus/gscan/gcode"
)

// A Command is a line of text sent to the controller through the queue.
//
// The set of commands is closed: LinearMove, Block and Line.
type Command interface {
	// Encode returns the exact bytes written, including the trailing newline.
	Encode() string

	command()
}

// MoveParams are the optional words of a linear move. Nil fields are
// left out of the encoded block.
type MoveParams struct {
	X, Y, Z *float64
	Feed    *float64 `json:"F"`
}

// LinearMove is a G1 move.
type LinearMove struct {
	params MoveParams
	enc    string
}

// NewLinearMove builds a G1 move from p.
func NewLinearMove(p MoveParams) *LinearMove {
	b := gcode.Block{{W: 'G', Arg: 1}}
	add := func(w byte, v *float64) {
		if v != nil {
			b = append(b, gcode.Word{W: w, Arg: *v})
		}
	}
	add('X', p.X)
	add('Y', p.Y)
	add('Z', p.Z)
	add('F', p.Feed)

	return &LinearMove{params: p, enc: b.String() + "\n"}
}

func (m *LinearMove) Params() MoveParams { return m.params }
func (m *LinearMove) Encode() string     { return m.enc }
func (m *LinearMove) String() string     { return strings.TrimSpace(m.enc) }
func (*LinearMove) command()             {}

// Block sends an already parsed G-code block.
type Block struct {
	block gcode.Block
	enc   string
}

func NewBlock(b gcode.Block) *Block {
	return &Block{block: b, enc: b.String() + "\n"}
}

func (b *Block) Block() gcode.Block { return b.block }
func (b *Block) Encode() string     { return b.enc }
func (b *Block) String() string     { return strings.TrimSpace(b.enc) }
func (*Block) command()             {}

// Line sends text verbatim, for system commands (`$H`, `$X`) and anything
// the block parser does not handle.
type Line struct {
	enc string
}

// NewLine trims s and terminates it with a newline.
func NewLine(s string) *Line {
	return &Line{enc: strings.TrimSpace(s) + "\n"}
}

func (l *Line) Encode() string { return l.enc }
func (l *Line) String() string { return strings.TrimSpace(l.enc) }
func (*Line) command()         {}

// Float is a helper for filling MoveParams.
func Float(v float64) *float64 { return &v }
