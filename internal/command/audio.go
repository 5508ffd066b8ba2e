package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnresolvedAudio is returned when a command needs AUDIO_FILE but no audio
// file for the transcript exists. The command step is skipped, not failed.
var ErrUnresolvedAudio = errors.New("command: audio file for transcript not found")

// AudioExtensions are tried in order when resolving a transcript's audio.
var AudioExtensions = []string{".m4a", ".mp3", ".wav", ".aac", ".ogg", ".flac"}

// ResolveAudio finds the recording a transcript was made from. Transcripts
// live in a directory next to the recordings, so the audio file has the
// transcript's base name in the parent directory.
func ResolveAudio(transcriptPath string) (string, error) {
	dir := filepath.Dir(transcriptPath)
	base := filepath.Base(transcriptPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	audioDir := filepath.Join(dir, "..")

	for _, ext := range AudioExtensions {
		candidate := filepath.Join(audioDir, stem+ext)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s.{%s} in %s", ErrUnresolvedAudio, stem,
		strings.Join(trimDots(AudioExtensions), ","), filepath.Clean(audioDir))
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}
