package artifacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Pulling a real image needs network and credentials, so unit coverage stops
// at reference validation; the streaming path shares scanTarReaderJoin with
// the container tests.

func TestScanRegistryImage_RejectsBadReference(t *testing.T) {
	err := ScanRegistryImage(context.Background(), "not a valid ref", Limits{}, func(string, []byte) {}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid image reference")
	assert.Contains(t, err.Error(), "not a valid ref")
}

func TestScanRegistryImage_NilCallbacksDoNotPanic(t *testing.T) {
	err := ScanRegistryImage(context.Background(), "Uppercase/Repo:tag", Limits{}, nil, nil)
	assert.Error(t, err)
}
