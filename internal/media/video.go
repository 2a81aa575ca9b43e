package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blacktop/skymirror/internal/logutil"
	"github.com/blacktop/skymirror/internal/mirror"
)

// DefaultMaxVideoBytes is the destination's per-video upload ceiling.
const DefaultMaxVideoBytes = 100 << 20

// Executor runs the ffmpeg binary. Injected so tests can substitute a fake.
type Executor interface {
	Run(ctx context.Context, args []string) error
}

// LocalExecutor invokes ffmpeg from PATH (or Binary when set).
type LocalExecutor struct {
	Binary string
}

// Run executes ffmpeg with args, surfacing the tail of stderr on failure.
func (e *LocalExecutor) Run(ctx context.Context, args []string) error {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	logutil.Debugf("running %s %s", bin, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if tail := lastLine(stderr.String()); tail != "" {
			return fmt.Errorf("%s: %w: %s", bin, err, tail)
		}
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

// EncodeProfile is the single-pass output profile applied to every video.
// One deterministic profile is the contract; there is no retry ladder.
type EncodeProfile struct {
	MaxDimension int      `yaml:"max_dimension"`
	CRF          int      `yaml:"crf"`
	Preset       string   `yaml:"preset"`
	AudioBitrate string   `yaml:"audio_bitrate"`
	PixelFormat  string   `yaml:"pixel_format"`
	ExtraArgs    []string `yaml:"extra_args"`
}

// DefaultEncodeProfile bounds resolution to 1280 on the long edge with a
// progressive-delivery mp4 layout.
func DefaultEncodeProfile() EncodeProfile {
	return EncodeProfile{
		MaxDimension: 1280,
		CRF:          28,
		Preset:       "veryfast",
		AudioBitrate: "128k",
		PixelFormat:  "yuv420p",
		ExtraArgs:    []string{"-movflags", "+faststart"},
	}
}

// LoadEncodeProfile overlays a YAML profile file onto the defaults. Only
// fields present in the file are overridden.
func LoadEncodeProfile(path string) (EncodeProfile, error) {
	profile := DefaultEncodeProfile()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return EncodeProfile{}, fmt.Errorf("load encode profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return EncodeProfile{}, fmt.Errorf("parse encode profile: %w", err)
	}
	return profile, nil
}

// Args builds the ffmpeg argument vector for transcoding input to output.
func (p EncodeProfile) Args(input, output string) []string {
	// Downscale-only: never inflate small sources, keep dimensions even for
	// the yuv420p requirement.
	scale := fmt.Sprintf(
		"scale=w=min(iw\\,%d):h=min(ih\\,%d):force_original_aspect_ratio=decrease:force_divisible_by=2",
		p.MaxDimension, p.MaxDimension,
	)

	args := []string{
		"-y",
		"-i", input,
		"-vf", scale,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(p.CRF),
		"-preset", p.Preset,
		"-c:a", "aac",
		"-b:a", p.AudioBitrate,
		"-pix_fmt", p.PixelFormat,
	}
	args = append(args, p.ExtraArgs...)
	return append(args, output)
}

// VideoNormalizer transcodes a video buffer to the profile and enforces the
// byte budget. All intermediate files live in a scoped workspace that is
// removed on every exit path.
type VideoNormalizer struct {
	MaxBytes int
	Profile  EncodeProfile
	Executor Executor
}

// NewVideoNormalizer constructs a normalizer with the default budget and
// profile around the given executor.
func NewVideoNormalizer(executor Executor) *VideoNormalizer {
	return &VideoNormalizer{
		MaxBytes: DefaultMaxVideoBytes,
		Profile:  DefaultEncodeProfile(),
		Executor: executor,
	}
}

// Normalize transcodes data once and returns the result, or fails with
// TranscodeError (codec) or SizeUnsatisfiable (still over budget). It never
// returns an oversized buffer.
func (n *VideoNormalizer) Normalize(ctx context.Context, data []byte) (mirror.NormalizedMedia, error) {
	max := n.MaxBytes
	if max <= 0 {
		max = DefaultMaxVideoBytes
	}

	ws, err := NewWorkspace("skymirror-video")
	if err != nil {
		return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaVideo, Err: fmt.Errorf("create workspace: %w", err)}
	}
	defer ws.Close()

	input := ws.Path("input.bin")
	output := ws.Path("output.mp4")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaVideo, Err: fmt.Errorf("stage input: %w", err)}
	}

	if err := n.Executor.Run(ctx, n.profile().Args(input, output)); err != nil {
		return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaVideo, Err: err}
	}

	out, err := os.ReadFile(output)
	if err != nil {
		return mirror.NormalizedMedia{}, mirror.TranscodeError{Kind: mirror.MediaVideo, Err: fmt.Errorf("read output: %w", err)}
	}
	if len(out) > max {
		return mirror.NormalizedMedia{}, mirror.SizeUnsatisfiable{Kind: mirror.MediaVideo, Size: len(out), MaxBytes: max}
	}

	logutil.Debugf("video transcoded: %d -> %d bytes", len(data), len(out))
	return mirror.NormalizedMedia{
		Kind:  mirror.MediaVideo,
		Bytes: out,
		MIME:  "video/mp4",
	}, nil
}

func (n *VideoNormalizer) profile() EncodeProfile {
	if n.Profile.MaxDimension > 0 {
		return n.Profile
	}
	return DefaultEncodeProfile()
}
