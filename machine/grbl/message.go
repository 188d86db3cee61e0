package grbl

import (
	"regexp"
	"strings"
)

// MessageKind identifies a classified controller line.
type MessageKind int

const (
	MessageUnknown MessageKind = iota
	MessageStartup
	MessageOk
	MessageError
	MessageStatus
)

func (k MessageKind) String() string {
	switch k {
	case MessageStartup:
		return "startup"
	case MessageOk:
		return "ok"
	case MessageError:
		return "error"
	case MessageStatus:
		return "status"
	}
	return "unknown"
}

// Message is a single classified line.
type Message struct {
	Kind MessageKind

	// Value is the captured part of the line: the version for
	// MessageStartup, the error text for MessageError and the payload
	// (without brackets) for MessageStatus.
	Value string

	Line string
}

// A Recognizer matches one message shape.
type Recognizer struct {
	Kind  MessageKind
	Match func(line string) (value string, ok bool)
}

var rxStartup = regexp.MustCompile(`^Grbl (\S+)`)

// DefaultRecognizers are the Grbl message shapes, in match order.
var DefaultRecognizers = []Recognizer{
	{Kind: MessageStartup, Match: func(line string) (string, bool) {
		m := rxStartup.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return m[1], true
	}},
	{Kind: MessageOk, Match: func(line string) (string, bool) {
		return "", line == "ok"
	}},
	{Kind: MessageError, Match: func(line string) (string, bool) {
		return strings.CutPrefix(line, "error:")
	}},
	{Kind: MessageStatus, Match: func(line string) (string, bool) {
		if len(line) < 2 || line[0] != '<' || line[len(line)-1] != '>' {
			return "", false
		}
		return line[1 : len(line)-1], true
	}},
}

// Classifier tries each recognizer in order; the first match wins.
type Classifier struct {
	Recognizers []Recognizer
}

// Classify never fails: lines no recognizer accepts are MessageUnknown.
func (c Classifier) Classify(line string) Message {
	rec := c.Recognizers
	if rec == nil {
		rec = DefaultRecognizers
	}
	for _, r := range rec {
		if v, ok := r.Match(line); ok {
			return Message{Kind: r.Kind, Value: v, Line: line}
		}
	}
	return Message{Kind: MessageUnknown, Line: line}
}
