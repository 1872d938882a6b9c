package subtitle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsLocalFile(t *testing.T) {
	require.True(t, IsLocalFile("/media/movies/foo.mp4"))
	require.True(t, IsLocalFile("file:///media/movies/foo.mp4"))
	require.False(t, IsLocalFile("http://example.com/foo.mp4"))
	require.False(t, IsLocalFile("https://example.com/foo.mp4"))
}

func TestLocalPathStripsFileScheme(t *testing.T) {
	require.Equal(t, "/media/movies/foo.mp4", LocalPath("file:///media/movies/foo.mp4"))
	require.Equal(t, "/media/movies/foo.mp4", LocalPath("/media/movies/foo.mp4"))
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, "/media/movies/foo.en.srt", OutputPath("/media/movies/foo.mp4", "en"))
	require.Equal(t, "/media/movies/foo.en.srt", OutputPath("file:///media/movies/foo.mp4", "en"))
}

func TestTranslatedPathReplacesExistingLanguageCode(t *testing.T) {
	require.Equal(t, "/media/movies/foo.fr.srt", TranslatedPath("/media/movies/foo.en.srt", "fr"))
}

func TestTranslatedPathAppendsWhenNoLanguageCodePresent(t *testing.T) {
	require.Equal(t, "/media/movies/foo.fr.srt", TranslatedPath("/media/movies/foo.srt", "fr"))
}

func TestCheckpointPath(t *testing.T) {
	require.Equal(t, "/tmp/checkpoints/job-1.fr.checkpoint.json", CheckpointPath("/tmp/checkpoints", "job-1", "fr"))
}
