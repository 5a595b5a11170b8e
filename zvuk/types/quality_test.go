package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/zvukgrab/zvuk/types"
)

func TestNegotiate(t *testing.T) {
	t.Parallel()

	full := types.Availability{FLAC: true, MP3High: true, MP3Mid: true}
	lossyOnly := types.Availability{FLAC: false, MP3High: true, MP3Mid: true}
	midOnly := types.Availability{FLAC: false, MP3High: false, MP3Mid: true}

	tests := []struct {
		name      string
		requested types.Quality
		avail     types.Availability
		expected  types.Quality
	}{
		{
			name:      "flac available at requested tier",
			requested: types.QualityFLAC,
			avail:     full,
			expected:  types.QualityFLAC,
		},
		{
			name:      "flac requested but only lossy served",
			requested: types.QualityFLAC,
			avail:     lossyOnly,
			expected:  types.QualityMP3High,
		},
		{
			name:      "flac requested but only mid served",
			requested: types.QualityFLAC,
			avail:     midOnly,
			expected:  types.QualityMP3Mid,
		},
		{
			name:      "high requested never upgrades to flac",
			requested: types.QualityMP3High,
			avail:     full,
			expected:  types.QualityMP3High,
		},
		{
			name:      "high requested falls back to mid",
			requested: types.QualityMP3High,
			avail:     midOnly,
			expected:  types.QualityMP3Mid,
		},
		{
			name:      "mid requested never upgrades",
			requested: types.QualityMP3Mid,
			avail:     full,
			expected:  types.QualityMP3Mid,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			actual, err := types.Negotiate(test.requested, test.avail)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, actual)
		})
	}
}

func TestNegotiateNothingServable(t *testing.T) {
	t.Parallel()

	none := types.Availability{FLAC: false, MP3High: false, MP3Mid: false}

	for _, requested := range []types.Quality{types.QualityFLAC, types.QualityMP3High, types.QualityMP3Mid} {
		t.Run(requested.String(), func(t *testing.T) {
			t.Parallel()

			_, err := types.Negotiate(requested, none)
			assert.ErrorIs(t, err, types.ErrQualityUnavailable)
		})
	}

	t.Run("mid requested but only higher tiers served", func(t *testing.T) {
		t.Parallel()

		_, err := types.Negotiate(
			types.QualityMP3Mid,
			types.Availability{FLAC: true, MP3High: true, MP3Mid: false},
		)
		assert.ErrorIs(t, err, types.ErrQualityUnavailable)
	})
}

func TestParseQuality(t *testing.T) {
	t.Parallel()

	for _, q := range []types.Quality{types.QualityFLAC, types.QualityMP3High, types.QualityMP3Mid} {
		parsed, err := types.ParseQuality(q.String())
		assert.NoError(t, err)
		assert.Equal(t, q, parsed)
	}

	_, err := types.ParseQuality("lossless")
	assert.Error(t, err)
}

func TestQualityContainer(t *testing.T) {
	t.Parallel()

	assert.Equal(t, types.ContainerFLAC, types.QualityFLAC.Container())
	assert.Equal(t, types.ContainerMP3, types.QualityMP3High.Container())
	assert.Equal(t, types.ContainerMP3, types.QualityMP3Mid.Container())

	assert.Equal(t, "flac", types.QualityFLAC.Ext())
	assert.Equal(t, "mp3", types.QualityMP3High.Ext())
	assert.Equal(t, "mp3", types.QualityMP3Mid.Ext())
}
