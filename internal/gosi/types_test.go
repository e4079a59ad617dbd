package gosi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassificationLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "재개발", ClassRedevelopment.Label())
	require.Equal(t, "재건축", ClassReconstruction.Label())
}

func TestItemStatusString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "delivered", ItemDelivered.String())
	require.Equal(t, "skipped", ItemSkipped.String())
	require.Equal(t, "failed", ItemFailed.String())
}
