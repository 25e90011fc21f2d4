package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spanishText = "El Banco de España ha publicado hoy el informe trimestral sobre la economía española, " +
		"en el que se revisan las previsiones de crecimiento y de inflación para los próximos años."
	englishText = "The Banco de España today published its quarterly report on the Spanish economy, " +
		"which revises the growth and inflation projections for the coming years."
)

func TestDetect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want string
	}{
		{"spanish", spanishText, "es"},
		{"english", englishText, "en"},
	}
	d := NewDetector()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := d.Detect(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectEmptyIsUndetermined(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	for _, in := range []string{"", "   \n\t"} {
		_, err := d.Detect(in)
		assert.ErrorIs(t, err, ErrUndetermined)
	}
}

func TestDetectorWhitelist(t *testing.T) {
	t.Parallel()

	d := NewDetector("es", "eng", "not-a-language")
	assert.Len(t, d.options.Whitelist, 2)

	got, err := d.Detect(spanishText)
	require.NoError(t, err)
	assert.Equal(t, "es", got)
}
