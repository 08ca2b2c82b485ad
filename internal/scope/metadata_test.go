package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const screenHead = `{"TIMEBASE":{"SCALE":"1.0ms","HOFFSET":4},` +
	`"SAMPLE":{"FULLSCREEN":1520,"SLOWMOVE":-1,"DATALEN":4,"SAMPLERATE":"(250kS/s)","TYPE":"SAMPle","DEPMEM":"7.6K"},` +
	`"CHANNEL":[` +
	`{"NAME":"CH1","DISPLAY":"ON","COUPLING":"DC","PROBE":"10X","SCALE":"500mV","OFFSET":"-50","FREQUENCE":1000.0},` +
	`{"NAME":"CH2","DISPLAY":"OFF","COUPLING":"AC","PROBE":"1X","SCALE":"2.00V","OFFSET":0}],` +
	`"RUNSTATUS":"RUN"}`

func TestMetadata(t *testing.T) {
	s, ft := newTestScope(t, block([]byte(screenHead)))

	md, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []string{":DATA:WAVE:SCREen:HEAD?"}, ft.sent)
	assert.Equal(t, 4, int(md.Sample.DataLen))
	assert.Equal(t, 4, int(md.Timebase.HOffset))
	assert.Equal(t, "RUN", md.RunStatus)
	require.Len(t, md.Channels, 2)
	assert.Equal(t, -50, int(md.Channels[0].Offset))
	assert.Equal(t, "AC", md.Channels[1].Coupling)
}

func TestMetadataInvalidJSON(t *testing.T) {
	s, _ := newTestScope(t, block([]byte("{not json")))

	_, err := s.Metadata()
	var merr *MalformedResponseError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ":DATA:WAVE:SCREen:HEAD?", merr.Command)
}

func testMetadata(t *testing.T) *Metadata {
	t.Helper()
	s, _ := newTestScope(t, block([]byte(screenHead)))
	md, err := s.Metadata()
	require.NoError(t, err)
	return md
}

func TestSampleRate(t *testing.T) {
	tests := map[string]float64{
		"(250kS/s)": 250e3,
		"(1MS/s)":   1e6,
		"(1GS/s)":   1e9,
		"(500S/s)":  500,
	}
	for in, want := range tests {
		md := &Metadata{Sample: SampleInfo{SampleRate: in}}
		got, err := md.SampleRate()
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-6, in)
	}

	_, err := (&Metadata{Sample: SampleInfo{SampleRate: "(fast)"}}).SampleRate()
	assert.Error(t, err)
	_, err = (&Metadata{Sample: SampleInfo{SampleRate: "(0kS/s)"}}).SampleRate()
	assert.Error(t, err)
}

func TestChannelScale(t *testing.T) {
	md := testMetadata(t)

	ch1, err := md.ChannelScale(CH1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, ch1, 1e-9)

	ch2, err := md.ChannelScale(CH2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ch2, 1e-9)

	md.Channels[1].Probe = "X"
	_, err = md.ChannelScale(CH2)
	assert.Error(t, err)
}

func TestVolts(t *testing.T) {
	md := testMetadata(t)

	// CH1: 5 V/div at the probe, offset -50 -> -412.5 counts.
	v, err := md.Volts(CH1, Samples{0, -412})
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.InDelta(t, 5*412.5/410, v[0], 1e-9)
	assert.InDelta(t, 5*0.5/410, v[1], 1e-9)

	v, err = md.Volts(CH2, Samples{410})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v[0], 1e-9)
}

func TestVoltsMissingChannel(t *testing.T) {
	md := &Metadata{Channels: []ChannelInfo{{Probe: "1X", Scale: "1V"}}}

	_, err := md.Volts(CH2, Samples{1})
	assert.Error(t, err)
}

func TestTimeBase(t *testing.T) {
	md := testMetadata(t)

	times, err := md.TimeBase()
	require.NoError(t, err)
	step := 5 / 250e3
	require.Len(t, times, 4)
	// HOFFSET 4 shifts every point by 8 steps.
	for k, want := range []float64{6 * step, 7 * step, 8 * step, 9 * step} {
		assert.InDelta(t, want, times[k], 1e-12, "point %d", k)
	}
}

func TestMeasurements(t *testing.T) {
	s, ft := newTestScope(t, block([]byte(`{"PERIOD":"1.000ms","FREQUENCY":"1.000kHz","VPP":"5.20V"}`)))

	m, err := s.Measurements(CH1)
	require.NoError(t, err)
	assert.Equal(t, []string{":MEAS:CH1?"}, ft.sent)
	assert.Equal(t, "5.20V", m["VPP"])
	assert.Len(t, m, 3)
}

func TestFetchVolts(t *testing.T) {
	s, ft := newTestScope(t,
		block([]byte(screenHead)),
		block([]byte{0x9A, 0x01, 0x00, 0x00}), // 410, 0
	)

	v, err := s.FetchVolts(CH2)
	require.NoError(t, err)
	assert.Equal(t, []string{":DATA:WAVE:SCREen:HEAD?", ":DATA:WAVE:SCREEN:CH2?"}, ft.sent)
	require.Len(t, v, 2)
	assert.InDelta(t, 2.0, v[0], 1e-9)
	assert.InDelta(t, 0.0, v[1], 1e-9)
}

func TestTimeBaseRejectsOversizedDataLen(t *testing.T) {
	md := &Metadata{Sample: SampleInfo{SampleRate: "(1MS/s)", DataLen: 1 << 30}}
	_, err := md.TimeBase()
	assert.ErrorContains(t, err, "out of range")

	md.Sample.DataLen = -1
	_, err = md.TimeBase()
	assert.Error(t, err)

	md.Sample.DataLen = MaxPoints
	times, err := md.TimeBase()
	require.NoError(t, err)
	assert.Len(t, times, MaxPoints)
}
