package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	var c Classifier

	tests := []struct {
		line  string
		kind  MessageKind
		value string
	}{
		{"Grbl 1.1h ['$' for help]", MessageStartup, "1.1h"},
		{"Grbl 0.9j", MessageStartup, "0.9j"},
		{"ok", MessageOk, ""},
		{"error:9", MessageError, "9"},
		{"error:Bad number format", MessageError, "Bad number format"},
		{"<Idle|MPos:0.000,0.000,0.000>", MessageStatus, "Idle|MPos:0.000,0.000,0.000"},
		{"<>", MessageStatus, ""},
		{"oks", MessageUnknown, ""},
		{"Grbl", MessageUnknown, ""},
		{"ALARM:1", MessageUnknown, ""},
		{"[MSG:Caution: Unlocked]", MessageUnknown, ""},
		{"<Idle", MessageUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			msg := c.Classify(tt.line)
			assert.Equal(t, tt.kind, msg.Kind)
			assert.Equal(t, tt.value, msg.Value)
			assert.Equal(t, tt.line, msg.Line)
		})
	}
}

func TestClassifier_Order(t *testing.T) {
	c := Classifier{Recognizers: []Recognizer{
		{Kind: MessageError, Match: func(line string) (string, bool) { return line, true }},
		DefaultRecognizers[1],
	}}
	assert.Equal(t, MessageError, c.Classify("ok").Kind)
}
