package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFileOfSize(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFingerprintRejectsFilesBelowMinimumSize(t *testing.T) {
	path := writeFileOfSize(t, MinFingerprintSize-1)
	_, err := Fingerprint(path)
	require.Error(t, err)
}

func TestFingerprintAcceptsFileAtExactMinimumSize(t *testing.T) {
	path := writeFileOfSize(t, MinFingerprintSize)
	fp, err := Fingerprint(path)
	require.NoError(t, err)
	require.Len(t, fp, 16)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	path := writeFileOfSize(t, MinFingerprintSize*2)
	first, err := Fingerprint(path)
	require.NoError(t, err)
	second, err := Fingerprint(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFingerprintDiffersOnContentChange(t *testing.T) {
	pathA := writeFileOfSize(t, MinFingerprintSize)
	pathB := filepath.Join(t.TempDir(), "other.mp4")
	data, err := os.ReadFile(pathA)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(pathB, data, 0o644))

	fpA, err := Fingerprint(pathA)
	require.NoError(t, err)
	fpB, err := Fingerprint(pathB)
	require.NoError(t, err)
	require.NotEqual(t, fpA, fpB)
}
