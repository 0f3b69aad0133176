// Package artifact captures failure screenshots and hands back references the
// report can resolve.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/config"
	"github.com/kuitang/movie-e2e/internal/errs"
)

// MIMEType is the content type of every captured artifact.
const MIMEType = "image/png"

// TimestampLayout is the capture-time component of artifact file names.
const TimestampLayout = "20060102_150405"

// Artifact is one captured screenshot. It is never mutated after Capture
// returns it.
type Artifact struct {
	Ref        string    `json:"ref"`
	FilePath   string    `json:"file_path"`
	MIMEType   string    `json:"mime_type"`
	CapturedAt time.Time `json:"captured_at"`
	RemoteURL  string    `json:"remote_url,omitempty"`
}

// Screenshotter writes a PNG of its current viewport to path.
type Screenshotter interface {
	Screenshot(path string) error
}

// Sink publishes a captured artifact somewhere other than local disk and
// returns the URL it can be fetched from.
type Sink interface {
	Upload(ctx context.Context, a Artifact) (string, error)
}

// Options configures a Capturer.
type Options struct {
	Dir          string // screenshot directory
	ReportRoot   string // base for relative references
	PathMode     string // config.ArtifactPathsRelative or config.ArtifactPathsAbsolute
	UniqueSuffix bool
	Now          func() time.Time
	Sink         Sink
	Logger       *zap.Logger
}

// Capturer writes screenshots with one path convention for its whole lifetime.
type Capturer struct {
	dir          string
	reportRoot   string
	pathMode     string
	uniqueSuffix bool
	now          func() time.Time
	sink         Sink
	log          *zap.Logger
}

// New validates opts and returns a Capturer.
func New(opts Options) (*Capturer, error) {
	if opts.Dir == "" {
		return nil, errs.New(errs.InvalidArgument, "artifact directory is required")
	}
	mode := opts.PathMode
	if mode == "" {
		mode = config.ArtifactPathsRelative
	}
	if mode != config.ArtifactPathsRelative && mode != config.ArtifactPathsAbsolute {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown artifact path mode %q", mode))
	}

	c := &Capturer{
		dir:          opts.Dir,
		reportRoot:   opts.ReportRoot,
		pathMode:     mode,
		uniqueSuffix: opts.UniqueSuffix,
		now:          opts.Now,
		sink:         opts.Sink,
		log:          opts.Logger,
	}
	if c.reportRoot == "" {
		c.reportRoot = filepath.Dir(c.dir)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if mode == config.ArtifactPathsAbsolute {
		abs, err := filepath.Abs(c.dir)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "resolve artifact directory", err)
		}
		c.dir = abs
	}
	return c, nil
}

// Dir returns the directory screenshots are written to.
func (c *Capturer) Dir() string {
	return c.dir
}

// FileName returns the file name for a capture of testID at t.
// Path separators in testID become underscores so the file stays inside the
// screenshot directory.
func FileName(testID string, t time.Time, suffix string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(testID)
	name := safe + "_" + t.Format(TimestampLayout)
	if suffix != "" {
		name += "_" + suffix
	}
	return name + ".png"
}

// Capture writes a screenshot of s for testID and returns the artifact.
// Errors carry errs.Capture; a failed upload to the sink is logged and the
// local artifact is still returned.
func (c *Capturer) Capture(ctx context.Context, s Screenshotter, testID string) (*Artifact, error) {
	if s == nil {
		return nil, errs.New(errs.Capture, "no session to capture")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Capture, "create screenshot directory", err)
	}

	capturedAt := c.now()
	var suffix string
	if c.uniqueSuffix {
		suffix = uuid.NewString()[:8]
	}
	path := filepath.Join(c.dir, FileName(testID, capturedAt, suffix))
	if err := s.Screenshot(path); err != nil {
		return nil, errs.Wrap(errs.Capture, "screenshot "+testID, err)
	}

	a := Artifact{
		Ref:        c.ref(path),
		FilePath:   path,
		MIMEType:   MIMEType,
		CapturedAt: capturedAt,
	}
	if c.sink != nil {
		url, err := c.sink.Upload(ctx, a)
		if err != nil {
			c.log.Warn("artifact upload failed", zap.String("test", testID), zap.String("path", path), zap.Error(err))
		} else {
			a.RemoteURL = url
		}
	}
	return &a, nil
}

func (c *Capturer) ref(path string) string {
	if c.pathMode == config.ArtifactPathsAbsolute {
		return path
	}
	rel, err := filepath.Rel(c.reportRoot, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
