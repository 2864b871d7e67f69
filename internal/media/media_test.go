package media

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/require"
)

func TestFingerprinter_Deterministic(t *testing.T) {
	for _, algo := range []string{"", AlgoSHA256, AlgoBLAKE2b} {
		f, err := NewFingerprinter(algo)
		require.NoError(t, err)

		a, err := f.Digest(strings.NewReader("same bytes"))
		require.NoError(t, err)
		b, err := f.Digest(strings.NewReader("same bytes"))
		require.NoError(t, err)
		c, err := f.Digest(strings.NewReader("other bytes"))
		require.NoError(t, err)

		require.Equal(t, a, b)
		require.NotEqual(t, a, c)
		require.Len(t, a, 64)
	}

	_, err := NewFingerprinter("md5")
	require.Error(t, err)
}

func TestFingerprinter_KnownSHA256(t *testing.T) {
	f, err := NewFingerprinter(AlgoSHA256)
	require.NoError(t, err)
	d, err := f.Digest(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d)
}

func taggedMedia(t *testing.T, tlen string) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	if tlen != "" {
		tag.AddTextFrame(tag.CommonID("Length"), id3v2.EncodingUTF8, tlen)
	}
	tag.SetTitle("probe")
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.WriteString("audio-payload")
	return buf.Bytes()
}

func TestID3Prober(t *testing.T) {
	var p ID3Prober

	d, err := p.ProbeDuration(bytes.NewReader(taggedMedia(t, "183500")))
	require.NoError(t, err)
	require.InDelta(t, 183.5, d, 1e-9)

	_, err = p.ProbeDuration(bytes.NewReader(taggedMedia(t, "")))
	require.ErrorIs(t, err, ErrNoDuration)

	for _, bad := range []string{"abc", "-5", "NaN", "Inf", "+Inf", "-Inf", "1e400"} {
		_, err = p.ProbeDuration(bytes.NewReader(taggedMedia(t, bad)))
		require.ErrorIs(t, err, ErrNoDuration, bad)
	}
}
