package media

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// ErrNoDuration is returned when the stream carries no usable length frame.
var ErrNoDuration = errors.New("media: no duration in tag")

// ID3Prober reads the duration from the ID3v2 TLEN frame (milliseconds).
type ID3Prober struct{}

// ProbeDuration returns the track length in seconds.
func (ID3Prober) ProbeDuration(r io.ReadSeeker) (float64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	tag, err := id3v2.ParseReader(r, id3v2.Options{Parse: true, ParseFrames: []string{"Length"}})
	if err != nil {
		return 0, fmt.Errorf("media: parse tag: %w", err)
	}

	raw := strings.TrimSpace(tag.GetTextFrame(tag.CommonID("Length")).Text)
	if raw == "" {
		return 0, ErrNoDuration
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, raw)
	}
	return ms / 1000, nil
}
