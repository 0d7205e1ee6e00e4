package capture

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

func andGateTrials() []pld.Trial {
	var out []pld.Trial
	for v := pld.Mask(0); v < 8; v++ {
		obs := v &^ pld.Bit(2)
		if v&3 == 3 {
			obs |= pld.Bit(2)
		}
		out = append(out, pld.Trial{Applied: v, Observed: obs})
	}
	return out
}

func TestReadHex(t *testing.T) {
	in := "pld walk 1-3 values\r\n" +
		"---- LINES=0x4 ----\r\n" +
		"0000000 0000000\r\n" +
		"0000001 0000001\r\n" +
		"0000002 0000002\r\n" +
		"0000003 0000007\r\n" +
		"---- END ----\r\n"
	c, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, EncodingHex, c.Encoding)
	assert.Equal(t, 4, c.Expected)
	require.Len(t, c.Trials, 4)
	assert.Equal(t, pld.Trial{Applied: 3, Observed: 7}, c.Trials[3])
	assert.Empty(t, c.Warnings)
	assert.True(t, c.Complete())
}

func TestReadBinary(t *testing.T) {
	in := "---- LINES=2 ----\n" +
		"0000:00000000:00000000:00000001 0000:00000000:00000000:00000001\n" +
		"1000:00000000:00000001:00000011 1000:00000000:00000001:00000111\n" +
		"---- END ----\n"
	c, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, c.Encoding)
	require.Len(t, c.Trials, 2)
	assert.Equal(t, pld.Mask(0x8000103), c.Trials[1].Applied)
	assert.Equal(t, pld.Mask(0x8000107), c.Trials[1].Observed)
}

func TestReadRaw(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("junk before header\n---- BYTES=0x18 ----\n")
	for _, v := range []uint32{1, 1, 2, 2, 3, 7} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("---- END ----\n")

	c, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, EncodingRaw, c.Encoding)
	assert.Equal(t, 3, c.Expected)
	require.Len(t, c.Trials, 3)
	assert.Equal(t, pld.Trial{Applied: 3, Observed: 7}, c.Trials[2])
	assert.Empty(t, c.Warnings)
}

func TestReadShort(t *testing.T) {
	in := "---- LINES=0x8 ----\n0000000 0000000\n0000001 0000001\n"
	c, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, c.Trials, 2)
	assert.True(t, c.Short())
	require.Len(t, c.Warnings, 1)
	assert.Equal(t, "Read 2 lines of data, but expected 8 lines", c.Warnings[0].String())
}

func TestReadInvalidLine(t *testing.T) {
	in := "---- LINES=0x3 ----\n0000000 0000000\nzzzz\n0000001 0000001\n---- END ----\n"
	c, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, c.Trials, 2)
	require.Len(t, c.Warnings, 2)
	assert.Equal(t, 3, c.Warnings[0].Line)
	assert.Contains(t, c.Warnings[0].Msg, "invalid")
}

func TestReadStopsAtExpected(t *testing.T) {
	in := "---- LINES=0x1 ----\n0000000 0000000\n0000001 0000001\n"
	c, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, c.Trials, 1)
	assert.Empty(t, c.Warnings)
}

func TestReadNoHeader(t *testing.T) {
	_, err := Read(strings.NewReader("hello\nworld\n"))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Read(strings.NewReader(strings.Repeat("noise\n", 150) + "---- LINES=0x1 ----\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadBadCount(t *testing.T) {
	_, err := Read(strings.NewReader("---- LINES=zz ----\n"))
	assert.Error(t, err)
}

func TestWriterRoundTrip(t *testing.T) {
	trials := andGateTrials()
	for _, enc := range []Encoding{EncodingHex, EncodingBinary, EncodingRaw} {
		t.Run(enc.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, enc, len(trials))
			require.NoError(t, err)
			for _, tr := range trials {
				require.NoError(t, w.WriteTrial(tr))
			}
			require.NoError(t, w.Close())
			assert.Equal(t, len(trials), w.Count())

			c, err := Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, enc, c.Encoding)
			assert.Equal(t, trials, c.Trials)
			assert.True(t, c.Complete())
			assert.Empty(t, c.Warnings)
		})
	}
}

func TestWriterAbort(t *testing.T) {
	trials := andGateTrials()
	for _, enc := range []Encoding{EncodingHex, EncodingRaw} {
		t.Run(enc.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, enc, 64)
			require.NoError(t, err)
			for _, tr := range trials[:5] {
				require.NoError(t, w.WriteTrial(tr))
			}
			require.NoError(t, w.Abort())
			assert.Error(t, w.WriteTrial(trials[5]))

			c, err := Read(&buf)
			require.NoError(t, err)
			assert.True(t, c.Aborted)
			assert.False(t, c.Complete())
			assert.Equal(t, trials[:5], c.Trials)
			require.NotEmpty(t, c.Warnings)
			assert.Contains(t, c.Warnings[len(c.Warnings)-1].Msg, "Read 5 lines of data, but expected 64")
		})
	}
}

func TestParseEncoding(t *testing.T) {
	e, err := ParseEncoding("binary")
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, e)
	_, err = ParseEncoding("octal")
	assert.Error(t, err)
}
