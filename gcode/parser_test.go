package gcode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Read(t *testing.T) {
	blocks, err := Parse(`
%
G21 G90 ; metric, absolute
(move to start) g0 x1.5 y-2
G1 X10 F300.5
%
`)
	require.NoError(t, err)
	assert.Equal(t, []Block{
		{{W: 'G', Arg: 21}, {W: 'G', Arg: 90}},
		{{W: 'G', Arg: 0}, {W: 'X', Arg: 1.5}, {W: 'Y', Arg: -2}},
		{{W: 'G', Arg: 1}, {W: 'X', Arg: 10}, {W: 'F', Arg: 300.5}},
	}, blocks)
	assert.Equal(t, "G1X10F300.5", blocks[2].String())
}

func TestParser_SyntaxError(t *testing.T) {
	p := NewParser(strings.NewReader("G0 X1\n$H\n"))
	_, err := p.Read()
	require.NoError(t, err)

	_, err = p.Read()
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, "$H", se.Text)
}

func TestBlock_Validate(t *testing.T) {
	assert.NoError(t, MustParse("G91 G0 X1 Y2")[0].Validate())
	assert.NoError(t, MustParse("G21 G90 G54 M3 S1000")[0].Validate())
	assert.EqualError(t, MustParse("G0 X1 X2")[0].Validate(), "word X repeated in block")
	assert.EqualError(t, MustParse("G0 G1 X1")[0].Validate(), "multiple words from modal group motion")
	assert.EqualError(t, MustParse("M7 M9")[0].Validate(), "multiple words from modal group coolant")
	assert.Error(t, Block{}.Validate())
}

func TestWord_ModalGroup(t *testing.T) {
	assert.Equal(t, ModalGroupMotion, Word{W: 'G', Arg: 38.2}.ModalGroup())
	assert.Equal(t, ModalGroupUnits, Word{W: 'G', Arg: 20}.ModalGroup())
	assert.Equal(t, ModalGroupCoolant, Word{W: 'M', Arg: 8}.ModalGroup())
	assert.Equal(t, ModalGroupNone, Word{W: 'G', Arg: 33}.ModalGroup())
	assert.Equal(t, ModalGroupNone, Word{W: 'X', Arg: 0}.ModalGroup())
	assert.Equal(t, "distance mode", ModalGroupDistanceMode.String())
}

func TestWord_String(t *testing.T) {
	assert.Equal(t, "X1.25", Word{W: 'X', Arg: 1.25}.String())
	assert.Equal(t, "Z-0.001", Word{W: 'Z', Arg: -0.0012}.String())
	assert.Equal(t, "G1", Word{W: 'G', Arg: 1}.String())
}

func TestWord_NegativeZero(t *testing.T) {
	assert.Equal(t, "X0", Word{W: 'X', Arg: -0.0001}.String())
}
