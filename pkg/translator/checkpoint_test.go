package translator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCheckpointMissingFileReturnsNil(t *testing.T) {
	cp, err := loadCheckpoint(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Nil(t, cp)
}

func TestCheckpointSaveAndReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-1.en.checkpoint.json")
	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	cp := &checkpoint{
		JobID:           "job-1",
		SourcePath:      "/media/a.fr.srt",
		SourceLanguage:  "fr",
		TargetLanguage:  "en",
		CompletedChunks: []int{0},
		Translated:      map[int][]string{0: {"Hello"}},
		CreatedAt:       created,
	}
	require.NoError(t, cp.save(path, time.Now().UTC()))

	reloaded, err := loadCheckpoint(path)
	require.NoError(t, err)
	require.True(t, reloaded.matches("/media/a.fr.srt", "fr", "en"))
	require.Equal(t, created, reloaded.CreatedAt)
	require.True(t, reloaded.completedSet()[0])
}

func TestCheckpointDoesNotMatchDifferentSource(t *testing.T) {
	cp := &checkpoint{SourcePath: "/media/a.fr.srt", SourceLanguage: "fr", TargetLanguage: "en"}
	require.False(t, cp.matches("/media/b.fr.srt", "fr", "en"))
	require.False(t, cp.matches("/media/a.fr.srt", "fr", "de"))
}

func TestDeleteCheckpointIgnoresMissingFile(t *testing.T) {
	require.NoError(t, deleteCheckpoint(filepath.Join(t.TempDir(), "missing.json")))
}
