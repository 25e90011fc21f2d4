package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecognizeRejectsBadInput(t *testing.T) {
	t.Parallel()

	engine, err := NewTesseract(Config{Languages: []string{" ", ""}})
	require.NoError(t, err)
	defer func() { require.NoError(t, engine.Close()) }()

	_, err = engine.Recognize(context.Background(), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Recognize(ctx, []byte{0x89, 'P', 'N', 'G'})
	require.ErrorIs(t, err, context.Canceled)
}
