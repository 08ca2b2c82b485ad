package scope

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the length prefix on every binary reply: a little-endian
// uint32 giving the number of payload bytes that follow.
const HeaderSize = 4

// SampleSize is the width of one ADC sample in a waveform payload.
const SampleSize = 2

// Samples are raw signed ADC readings in the order the scope sent them.
type Samples []int16

// MalformedResponseError means a reply did not match its declared layout.
type MalformedResponseError struct {
	Command string
	Reason  string
	Want    int // bytes the header promised, including the header; 0 if unknown
	Got     int // bytes actually received; 0 if unknown
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response: " + e.Reason
	if e.Want != 0 || e.Got != 0 {
		msg += fmt.Sprintf(" (want %d bytes, got %d)", e.Want, e.Got)
	}
	if e.Command != "" {
		msg = fmt.Sprintf("%s: %s", e.Command, msg)
	}
	return msg
}

// DecodeBlock validates the length header of raw and returns the payload it
// declares. Bytes past the declared payload are ignored.
func DecodeBlock(raw []byte) ([]byte, error) {
	if len(raw) < HeaderSize {
		return nil, &MalformedResponseError{Reason: "short header", Want: HeaderSize, Got: len(raw)}
	}
	n := binary.LittleEndian.Uint32(raw[:HeaderSize])
	want := uint64(HeaderSize) + uint64(n)
	if uint64(len(raw)) < want {
		return nil, &MalformedResponseError{Reason: "truncated payload", Want: int(want), Got: len(raw)}
	}
	return raw[HeaderSize:want], nil
}

// DecodeSamples reads payload as consecutive little-endian int16 values.
func DecodeSamples(payload []byte) (Samples, error) {
	if len(payload)%SampleSize != 0 {
		return nil, &MalformedResponseError{
			Reason: fmt.Sprintf("payload of %d bytes is not a whole number of %d-byte samples", len(payload), SampleSize),
		}
	}
	out := make(Samples, len(payload)/SampleSize)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(payload[i*SampleSize:]))
	}
	return out, nil
}

// FetchWaveform dumps the on-screen samples of ch. A short or inconsistent
// reply is reported as *MalformedResponseError; nothing is retried.
func (s *Scope) FetchWaveform(ch Channel) (Samples, error) {
	if !ch.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, int(ch))
	}
	cmd := fmt.Sprintf(":DATA:WAVE:SCREEN:%s?", ch)
	raw, err := s.Query(cmd)
	if err != nil {
		return nil, err
	}
	samples, err := decodeWaveform(raw)
	if err != nil {
		return nil, withCommand(err, cmd)
	}
	s.log.WithField("samples", len(samples)).Debugf("%s waveform decoded", ch)
	return samples, nil
}

func decodeWaveform(raw []byte) (Samples, error) {
	payload, err := DecodeBlock(raw)
	if err != nil {
		return nil, err
	}
	return DecodeSamples(payload)
}

func withCommand(err error, cmd string) error {
	if m, ok := err.(*MalformedResponseError); ok {
		m.Command = cmd
	}
	return err
}
