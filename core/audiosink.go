package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AudioSegment is the agent audio of one completed response.
type AudioSegment struct {
	Prefix   string
	Turn     int
	Final    bool
	Audio    []byte
	Duration time.Duration
}

// AudioFile describes a persisted segment.
type AudioFile struct {
	Name     string        `json:"file"`
	Path     string        `json:"path"`
	Turn     int           `json:"turn"`
	Size     int           `json:"size_bytes"`
	Duration time.Duration `json:"duration"`
}

type AudioSink interface {
	WriteSegment(ctx context.Context, segment AudioSegment) (AudioFile, error)
}

// FileSink writes every segment to its own raw PCM file in Dir.
type FileSink struct {
	Dir string

	now func() time.Time
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &FileSink{Dir: dir, now: time.Now}, nil
}

func (s *FileSink) WriteSegment(ctx context.Context, segment AudioSegment) (AudioFile, error) {
	if err := ctx.Err(); err != nil {
		return AudioFile{}, err
	}

	name := s.fileName(segment)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, segment.Audio, 0o644); err != nil {
		return AudioFile{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	return AudioFile{
		Name:     name,
		Path:     path,
		Turn:     segment.Turn,
		Size:     len(segment.Audio),
		Duration: segment.Duration,
	}, nil
}

// fileName is <prefix>_turn<N>_<YYYYmmdd_HHMMSS>_<4 hex>.pcm. The random
// suffix keeps segments saved within the same second apart.
func (s *FileSink) fileName(segment AudioSegment) string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	prefix := strings.TrimSpace(segment.Prefix)
	if prefix == "" {
		prefix = "session"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("%s_turn%d_%s_%s.pcm", prefix, segment.Turn, now().Format("20060102_150405"), suffix)
}
