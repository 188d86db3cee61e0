package gcode

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Parser reads Blocks from G-code text, one per non-empty line.
type Parser struct {
	br   *bufio.Reader
	line int
}

func NewParser(r io.Reader) *Parser {
	if br, ok := r.(*bufio.Reader); ok {
		return &Parser{br: br}
	}

	return &Parser{br: bufio.NewReader(r)}
}

var (
	rx        = regexp.MustCompile(`^([A-Z][0-9.\-]+)+$`)
	rxSplit   = regexp.MustCompile(`([A-Z])([0-9.\-]+)`)
	rxComment = regexp.MustCompile(`\([^)]*\)`)
)

// SyntaxError is returned for a line that is not a sequence of words.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: invalid or unhandled line: %s", e.Line, e.Text)
}

// Line returns the 1-based number of the line last read.
func (p *Parser) Line() int { return p.line }

func (p *Parser) Read() (Block, error) {
	for {
		s, err := p.br.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		if err != nil {
			return nil, err
		}
		p.line++

		s = strings.SplitN(s, ";", 2)[0]
		s = rxComment.ReplaceAllString(s, "")
		s = strings.Replace(s, " ", "", -1)
		s = strings.TrimSpace(s)
		s = strings.ToUpper(s)

		if s == "" || s == "%" {
			continue
		}

		if !rx.MatchString(s) {
			return nil, &SyntaxError{Line: p.line, Text: s}
		}

		codes := rxSplit.FindAllStringSubmatch(s, -1)
		res := make(Block, len(codes))

		for i, c := range codes {
			res[i].W = c[1][0]
			res[i].Arg, err = strconv.ParseFloat(c[2], 64)
			if err != nil {
				return nil, &SyntaxError{Line: p.line, Text: s}
			}
		}

		return res, nil
	}
}
