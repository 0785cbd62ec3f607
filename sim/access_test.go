package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccessMode_FixedMapping(t *testing.T) {
	tests := []struct {
		token string
		want  AccessMode
	}{
		{"r", ModeRead},
		{"R", ModeRead},
		{"w", ModeWrite},
		{"W", ModeWrite},
	}
	for _, tt := range tests {
		got, err := ParseAccessMode(tt.token)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}

	_, err := ParseAccessMode("s")
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestAccessMode_String_RoundTripsThroughParse(t *testing.T) {
	for _, m := range []AccessMode{ModeRead, ModeWrite} {
		got, err := ParseAccessMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	assert.False(t, AccessMode(5).Valid())
}

func TestAccessRecord_Timing(t *testing.T) {
	// GIVEN a fresh record
	a := NewAccessRecord(3, ModeWrite, 0x40, 10)
	assert.Equal(t, int64(10), a.ServeTime, "serve time starts at arrival")
	assert.Equal(t, int64(10), a.FinishTime())

	// WHEN time is charged and admission delays it
	a.AddTime(25)
	a.DelayUntil(5) // earlier than serve time, ignored
	a.DelayUntil(40)

	// THEN finish = serve + execution and serve only grew
	assert.Equal(t, int64(40), a.ServeTime)
	assert.Equal(t, int64(65), a.FinishTime())
	assert.Equal(t, int64(30), a.StallTime())

	a.Reset()
	assert.Equal(t, int64(10), a.ServeTime)
	assert.Equal(t, int64(0), a.ExecutionTime)
	assert.Equal(t, TerminalNone, a.Terminal)
	assert.Nil(t, a.Path)
}
