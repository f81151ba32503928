package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardstack/internal/card"
)

func TestDecodePlay(t *testing.T) {
	b, err := Encode(Play{Card: card.Card{Color: card.Blue, Rank: 3}, IsLastCard: true, PID: 777})
	require.NoError(t, err)

	p, err := DecodePlay(b)
	require.NoError(t, err)
	assert.Equal(t, card.Card{Color: card.Blue, Rank: 3}, p.Card)
	assert.True(t, p.IsLastCard)
	assert.Equal(t, int64(777), p.PID)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		decode func([]byte) error
		input  string
	}{
		{"join garbage", func(b []byte) error { _, err := DecodeJoin(b); return err }, `{{`},
		{"join reserved id", func(b []byte) error { _, err := DecodeJoin(b); return err }, `{"pid":3}`},
		{"play bad card", func(b []byte) error { _, err := DecodePlay(b); return err }, `{"card":{"color":"GREEN","rank":1},"pid":99}`},
		{"play rank out of range", func(b []byte) error { _, err := DecodePlay(b); return err }, `{"card":{"color":"RED","rank":11},"pid":99}`},
		{"play missing pid", func(b []byte) error { _, err := DecodePlay(b); return err }, `{"card":{"color":"RED","rank":1}}`},
		{"reply unknown status", func(b []byte) error { _, err := DecodeReply(b); return err }, `{"status":"maybe"}`},
		{"reply valid without card", func(b []byte) error { _, err := DecodeReply(b); return err }, `{"status":"valid"}`},
		{"reply not json", func(b []byte) error { _, err := DecodeReply(b); return err }, `empty`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decode([]byte(tt.input)), ErrMalformed)
		})
	}
}

func TestEnd_WinnerOptional(t *testing.T) {
	b, err := Encode(End(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"end"}`, string(b))

	winner := int64(4321)
	r, err := DecodeReply([]byte(`{"status":"end","winner":4321}`))
	require.NoError(t, err)
	assert.Equal(t, End(&winner), r)
}

func TestValidPlayerID(t *testing.T) {
	for _, tag := range ControlTags {
		assert.False(t, ValidPlayerID(tag))
	}
	assert.False(t, ValidPlayerID(0))
	assert.True(t, ValidPlayerID(5))
}
