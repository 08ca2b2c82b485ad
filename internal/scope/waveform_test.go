package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWaveform(t *testing.T) {
	payload := []byte{0x00, 0x80, 0x7F, 0x00, 0x10, 0x00, 0xEF, 0xFF}

	for _, ch := range Channels {
		t.Run(ch.String(), func(t *testing.T) {
			s, ft := newTestScope(t, block(payload))

			samples, err := s.FetchWaveform(ch)
			require.NoError(t, err)
			assert.Equal(t, Samples{-32768, 127, 16, -17}, samples)
			assert.Equal(t, []string{":DATA:WAVE:SCREEN:" + ch.String() + "?"}, ft.sent)
			assert.Equal(t, []int{DefaultReadSize}, ft.maxLens)
		})
	}
}

func TestFetchWaveformElementCount(t *testing.T) {
	payload := make([]byte, 1520*SampleSize)
	s, _ := newTestScope(t, block(payload))

	samples, err := s.FetchWaveform(CH1)
	require.NoError(t, err)
	assert.Len(t, samples, 1520)
}

func TestFetchWaveformTruncated(t *testing.T) {
	full := block([]byte{0x00, 0x80, 0x7F, 0x00, 0x10, 0x00, 0xEF, 0xFF})
	s, _ := newTestScope(t, full[:len(full)-2])

	samples, err := s.FetchWaveform(CH2)
	assert.Nil(t, samples)

	var merr *MalformedResponseError
	require.True(t, errors.As(err, &merr), "got %v", err)
	assert.Equal(t, ":DATA:WAVE:SCREEN:CH2?", merr.Command)
	assert.Equal(t, 12, merr.Want)
	assert.Equal(t, 10, merr.Got)
}

func TestFetchWaveformNoReply(t *testing.T) {
	s, _ := newTestScope(t)

	_, err := s.FetchWaveform(CH1)
	var merr *MalformedResponseError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, HeaderSize, merr.Want)
	assert.Equal(t, 0, merr.Got)
}

func TestFetchWaveformOddPayload(t *testing.T) {
	s, _ := newTestScope(t, block([]byte{1, 2, 3}))

	_, err := s.FetchWaveform(CH1)
	var merr *MalformedResponseError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ":DATA:WAVE:SCREEN:CH1?", merr.Command)
	assert.Contains(t, err.Error(), "payload of 3 bytes")
}

func TestFetchWaveformIgnoresTrailingBytes(t *testing.T) {
	raw := append(block([]byte{0x01, 0x00}), 0xAA, 0xBB)
	s, _ := newTestScope(t, raw)

	samples, err := s.FetchWaveform(CH1)
	require.NoError(t, err)
	assert.Equal(t, Samples{1}, samples)
}

func TestFetchWaveformInvalidChannel(t *testing.T) {
	s, ft := newTestScope(t)

	_, err := s.FetchWaveform(Channel(3))
	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Empty(t, ft.sent, "nothing may be sent for an invalid channel")
}

func TestFetchWaveformTransportError(t *testing.T) {
	s, ft := newTestScope(t)
	boom := errors.New("boom")
	ft.recvErr = boom

	_, err := s.FetchWaveform(CH1)
	assert.ErrorIs(t, err, boom)
}

func TestDecodeIsIdempotent(t *testing.T) {
	raw := block([]byte{0x00, 0x80, 0x7F, 0x00, 0x10, 0x00, 0xEF, 0xFF})

	first, err := decodeWaveform(raw)
	require.NoError(t, err)
	second, err := decodeWaveform(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodeBlock(t *testing.T) {
	payload, err := DecodeBlock([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, payload)

	_, err = DecodeBlock([]byte{2, 0, 0})
	assert.EqualError(t, err, "malformed response: short header (want 4 bytes, got 3)")

	// A huge declared length must not overflow the comparison.
	_, err = DecodeBlock([]byte{0xFF, 0xFF, 0xFF, 0xFF, 1, 2})
	var merr *MalformedResponseError
	assert.ErrorAs(t, err, &merr)
}

func TestDecodeSamplesOddPayload(t *testing.T) {
	_, err := DecodeSamples([]byte{1, 2, 3})

	var merr *MalformedResponseError
	require.ErrorAs(t, err, &merr)
	assert.Zero(t, merr.Want)
	assert.Zero(t, merr.Got)
	assert.EqualError(t, err, "malformed response: payload of 3 bytes is not a whole number of 2-byte samples")
}
