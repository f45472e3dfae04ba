package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farcloser/replaygain"
	"github.com/farcloser/replaygain/internal/output"
)

func TestClipRisk(t *testing.T) {
	t.Parallel()

	// -6.02 dBFS peak.
	assert.False(t, output.ClipRisk(replaygain.Result{GainDB: 5, Peak: 0.5}))
	assert.True(t, output.ClipRisk(replaygain.Result{GainDB: 7, Peak: 0.5}))
	assert.False(t, output.ClipRisk(replaygain.Result{GainDB: 64, Peak: 0}))
}

func TestTags(t *testing.T) {
	t.Parallel()

	track := replaygain.Result{GainDB: -6.484, Peak: 0.98852539}
	album := replaygain.Result{GainDB: 2.5, Peak: 1}

	assert.Equal(t, map[string]string{
		output.TagTrackGain: "-6.48 dB",
		output.TagTrackPeak: "0.988525",
	}, output.Tags(track, nil))

	tags := output.Tags(track, &album)
	assert.Equal(t, "+2.50 dB", tags[output.TagAlbumGain])
	assert.Equal(t, "1.000000", tags[output.TagAlbumPeak])
}

func TestResultToMap(t *testing.T) {
	t.Parallel()

	meta := output.ResultToMap(replaygain.Result{GainDB: 64, Windows: 20})
	assert.NotContains(t, meta, "peak_db")
	assert.Equal(t, uint64(20), meta["windows"])
	assert.Equal(t, false, meta["clip_risk"])

	meta = output.ResultToMap(replaygain.Result{GainDB: -3, Peak: 0.1, Windows: 1})
	assert.InDelta(t, -20.0, meta["peak_db"], 1e-12)
}
