package grbl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	rep, err := ParseStatus("Idle|MPos:1.0,2.0,3.0")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, rep.State)
	assert.Equal(t, []float64{1, 2, 3}, rep.Values["MPos"])
	assert.Equal(t, []string{"1.0", "2.0", "3.0"}, rep.Fields["MPos"])
}

func TestParseStatus_Grbl11(t *testing.T) {
	rep, err := ParseStatus("<Hold:0|MPos:-10.000,5.500,-1.250|Bf:15,128|FS:500,8000|Pn:XZ|WCO:0.000,-5.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, StateHold, rep.State)
	assert.Equal(t, "0", rep.SubState)
	assert.Equal(t, "Hold:0", rep.Raw)
	assert.Equal(t, []float64{15, 128}, rep.Values["Bf"])
	assert.Equal(t, []float64{500, 8000}, rep.Values["FS"])
	assert.Equal(t, []string{"XZ"}, rep.Fields["Pn"])
	assert.NotContains(t, rep.Values, "Pn")
	assert.Equal(t, []float64{0, -5, 0}, rep.Values["WCO"])
}

func TestParseStatus_UnknownMode(t *testing.T) {
	rep, err := ParseStatus("Bogus|MPos:1,2,3")
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, rep.State)
	assert.Equal(t, "Bogus", rep.Raw)
	assert.Equal(t, []float64{1, 2, 3}, rep.Values["MPos"])
}

func TestParseStatus_Malformed(t *testing.T) {
	rep, err := ParseStatus("Run|MPos:1,x,3|junk|FS:10,0")
	require.NotNil(t, rep)
	assert.Equal(t, StateRun, rep.State)
	assert.NotContains(t, rep.Values, "MPos")
	assert.NotContains(t, rep.Fields, "MPos")
	assert.Equal(t, []float64{10, 0}, rep.Values["FS"])

	require.Error(t, err)
	var mf *MalformedFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "MPos:1,x,3", mf.Field)
	assert.Contains(t, err.Error(), `"junk"`)
}

func TestParseState(t *testing.T) {
	s, sub := ParseState("Door:1")
	assert.Equal(t, StateDoor, s)
	assert.Equal(t, "1", sub)

	s, _ = ParseState("Unknown")
	assert.Equal(t, StateUnknown, s)

	for st := StateIdle; st <= StateSleep; st++ {
		got, _ := ParseState(st.String())
		assert.Equal(t, st, got)
	}
	assert.Equal(t, "Unknown", State(99).String())
}

func TestTracker_Update(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.Known())

	rep, _ := ParseStatus("Idle|WPos:1,1,1|WCO:10,20,30")
	assert.True(t, tr.Update(rep))
	assert.True(t, tr.Known())
	assert.Equal(t, 11.0, tr.Status().MPos.X)

	// WCO is sticky between reports
	rep, _ = ParseStatus("Run|WPos:2,2,2")
	assert.True(t, tr.Update(rep))
	assert.Equal(t, StateRun, tr.Status().State)
	assert.Equal(t, 22.0, tr.Status().MPos.Y)

	rep, _ = ParseStatus("Alarm")
	assert.False(t, tr.Update(rep))
	assert.Equal(t, StateAlarm, tr.Status().State)

	rep, _ = ParseStatus("Nope")
	tr.Update(rep)
	assert.False(t, tr.Known())

	tr.Reset()
	assert.Equal(t, Status{}, tr.Status())
}
