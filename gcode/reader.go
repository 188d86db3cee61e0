package gcode

import "io"

// Reader is implemented by anything producing a stream of Blocks.
//
// Read returns io.EOF once the stream is exhausted.
type Reader interface {
	Read() (Block, error)
}

var _ Reader = &Parser{}

type BlocksReader struct {
	Blocks []Block
	n      int
}

func (b *BlocksReader) Read() (Block, error) {
	if b.n == len(b.Blocks) {
		return nil, io.EOF
	}

	b.n++
	return b.Blocks[b.n-1], nil
}

// ReadAll drains r into a slice.
func ReadAll(r Reader) ([]Block, error) {
	var res []Block
	for {
		b, err := r.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, b)
	}
}
