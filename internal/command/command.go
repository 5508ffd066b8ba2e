package command

import "os"

// Context carries what the standard passes need to render a plugin command.
type Context struct {
	// TranscriptPath locates the audio file for AUDIO_FILE.
	TranscriptPath string

	// ArtifactPath replaces FILE: the written or pre-existing artifact.
	ArtifactPath string

	// Lookup resolves environment variables. Default: os.LookupEnv.
	Lookup func(string) (string, bool)

	// Sensitive marks variables whose values are masked. Default:
	// SensitiveFunc(nil).
	Sensitive func(string) bool
}

// Build renders template with the fixed pass order AUDIO_FILE, FILE,
// environment. When the template needs AUDIO_FILE and no audio file exists,
// the returned error wraps ErrUnresolvedAudio.
func Build(template string, c Context) (Rendered, error) {
	lookup := c.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	sensitive := c.Sensitive
	if sensitive == nil {
		sensitive = SensitiveFunc(nil)
	}

	passes := make([]Pass, 0, 3)
	if NeedsAudio(template) {
		audio, err := ResolveAudio(c.TranscriptPath)
		if err != nil {
			return Rendered{}, err
		}
		passes = append(passes, AudioPass(audio))
	}
	passes = append(passes, FilePass(c.ArtifactPath), EnvPass(lookup, sensitive))
	return Render(template, passes...), nil
}
