package scope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ADC counts per vertical division and per unit of channel offset, as
// observed on the DOS1102 screen dump.
const (
	countsPerDivision = 410
	countsPerOffset   = 8.25
)

// MaxPoints bounds DATALEN: a screen never holds more samples than fit in one reply.
const MaxPoints = DefaultReadSize / SampleSize

// JSONInt decodes integers that the firmware sends either bare or quoted.
type JSONInt int

func (i *JSONInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*i = JSONInt(v)
	return nil
}

// Metadata describes the current screen capture, as returned by
// :DATA:WAVE:SCREen:HEAD?.
type Metadata struct {
	Timebase  TimebaseInfo  `json:"TIMEBASE"`
	Sample    SampleInfo    `json:"SAMPLE"`
	Channels  []ChannelInfo `json:"CHANNEL"`
	RunStatus string        `json:"RUNSTATUS"`
}

type TimebaseInfo struct {
	Scale   string  `json:"SCALE"`
	HOffset JSONInt `json:"HOFFSET"`
}

type SampleInfo struct {
	DataLen    JSONInt `json:"DATALEN"`
	SampleRate string  `json:"SAMPLERATE"` // e.g. "(250kS/s)"
	Type       string  `json:"TYPE"`
}

type ChannelInfo struct {
	Name     string  `json:"NAME"`
	Display  string  `json:"DISPLAY"`
	Coupling string  `json:"COUPLING"`
	Probe    string  `json:"PROBE"` // e.g. "10X"
	Scale    string  `json:"SCALE"` // e.g. "1.00V", "500mV"
	Offset   JSONInt `json:"OFFSET"`
}

// Measurements holds the automatic measurements of one channel keyed by name.
type Measurements map[string]interface{}

// Metadata queries the settings that apply to the current screen capture.
func (s *Scope) Metadata() (*Metadata, error) {
	const cmd = ":DATA:WAVE:SCREen:HEAD?"
	var md Metadata
	if err := s.queryJSON(cmd, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// Measurements queries every automatic measurement of ch.
func (s *Scope) Measurements(ch Channel) (Measurements, error) {
	if !ch.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, int(ch))
	}
	m := Measurements{}
	if err := s.queryJSON(fmt.Sprintf(":MEAS:%s?", ch), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// FetchVolts fetches the waveform of ch and scales it to volts at the probe tip.
func (s *Scope) FetchVolts(ch Channel) ([]float64, error) {
	md, err := s.Metadata()
	if err != nil {
		return nil, err
	}
	samples, err := s.FetchWaveform(ch)
	if err != nil {
		return nil, err
	}
	return md.Volts(ch, samples)
}

func (s *Scope) queryJSON(cmd string, v interface{}) error {
	raw, err := s.Query(cmd)
	if err != nil {
		return err
	}
	payload, err := DecodeBlock(raw)
	if err != nil {
		return withCommand(err, cmd)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &MalformedResponseError{Command: cmd, Reason: "invalid JSON: " + err.Error(), Want: len(raw), Got: len(raw)}
	}
	return nil
}

// Channel returns the settings of ch.
func (m *Metadata) Channel(ch Channel) (*ChannelInfo, error) {
	if !ch.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, int(ch))
	}
	if int(ch) > len(m.Channels) {
		return nil, fmt.Errorf("metadata has no entry for %s", ch)
	}
	return &m.Channels[int(ch)-1], nil
}

// SampleRate returns the sample rate in samples per second. It is shared by
// both channels.
func (m *Metadata) SampleRate() (float64, error) {
	raw := strings.Trim(strings.TrimSpace(m.Sample.SampleRate), "()")
	v, err := parseWithUnit(raw, []unit{
		{"GS/s", 1e9},
		{"MS/s", 1e6},
		{"kS/s", 1e3},
		{"S/s", 1},
	})
	if err != nil {
		return 0, fmt.Errorf("sample rate %q: %w", m.Sample.SampleRate, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("sample rate %q is not positive", m.Sample.SampleRate)
	}
	return v, nil
}

// ChannelScale returns the vertical scale of ch per division at the probe tip,
// that is the screen scale multiplied by the probe attenuation.
func (m *Metadata) ChannelScale(ch Channel) (float64, error) {
	info, err := m.Channel(ch)
	if err != nil {
		return 0, err
	}
	scale, err := parseWithUnit(strings.TrimSpace(info.Scale), []unit{
		{"mV", 1e-3},
		{"kV", 1e3},
		{"V", 1},
		{"mA", 1e-3},
		{"kA", 1e3},
		{"A", 1},
	})
	if err != nil {
		return 0, fmt.Errorf("%s scale %q: %w", ch, info.Scale, err)
	}
	probe, err := strconv.Atoi(strings.TrimRight(strings.TrimSpace(info.Probe), "Xx"))
	if err != nil {
		return 0, fmt.Errorf("%s probe %q: %w", ch, info.Probe, err)
	}
	return scale * float64(probe), nil
}

// Volts converts raw samples of ch to volts using the scale and offset in m.
func (m *Metadata) Volts(ch Channel, samples Samples) ([]float64, error) {
	info, err := m.Channel(ch)
	if err != nil {
		return nil, err
	}
	scale, err := m.ChannelScale(ch)
	if err != nil {
		return nil, err
	}
	offset := float64(info.Offset) * countsPerOffset
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = scale * (float64(v) - offset) / countsPerDivision
	}
	return out, nil
}

// TimeBase returns the time in seconds of each of the DATALEN points of the
// capture, centred on the trigger and shifted by the horizontal offset.
func (m *Metadata) TimeBase() ([]float64, error) {
	rate, err := m.SampleRate()
	if err != nil {
		return nil, err
	}
	n := int(m.Sample.DataLen)
	if n < 0 || n > MaxPoints {
		return nil, fmt.Errorf("DATALEN %d out of range [0, %d]", n, MaxPoints)
	}
	step := 5 / rate
	shift := float64(m.Timebase.HOffset) * 2 * step
	out := make([]float64, n)
	for k := range out {
		out[k] = (float64(k)-float64(n)/2)*step + shift
	}
	return out, nil
}

type unit struct {
	suffix string
	factor float64
}

// parseWithUnit parses values such as "500mV" or "250kS/s". units are tried
// in order, so longer suffixes sharing a tail must come first.
func parseWithUnit(s string, units []unit) (float64, error) {
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), 64)
			if err != nil {
				return 0, err
			}
			return v * u.factor, nil
		}
	}
	return 0, errors.New("unknown unit")
}
