package gcode

import (
	"errors"
	"fmt"
	"strings"
)

// Block is a single line of G-code.
type Block []Word

func (b Block) Arg(w byte) (bool, float64) {
	for _, g := range b {
		if g.W == w {
			return true, g.Arg
		}
	}
	return false, 0
}

// String formats the block the way Grbl expects it, without spaces.
func (b Block) String() string {
	var sb strings.Builder
	for _, w := range b {
		sb.WriteString(w.String())
	}
	return sb.String()
}

// Validate checks that the block is non-empty, repeats no axis or parameter
// word, and uses each modal group at most once.
func (b Block) Validate() error {
	if len(b) == 0 {
		return errors.New("empty block")
	}
	var checkWord [256]bool
	var checkModal [256]bool

	var m ModalGroup
	for _, g := range b {
		if !g.IsValid() {
			return errors.New("invalid word in block")
		}
		if g.W != 'G' && g.W != 'M' && checkWord[g.W] {
			return fmt.Errorf("word %c repeated in block", g.W)
		}
		checkWord[g.W] = true
		m = g.ModalGroup()
		if m != ModalGroupNone && checkModal[m] {
			return fmt.Errorf("multiple words from modal group %s", m)
		}
		checkModal[m] = true
	}

	return nil
}
