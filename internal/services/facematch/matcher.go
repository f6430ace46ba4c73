package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"opptrace/internal/enrichment"
	"opptrace/internal/services"
)

const defaultTimeout = 120 * time.Second

// Config captures the runtime settings for the external face matcher.
type Config struct {
	Command        string
	TimeoutSeconds int
	MinConfidence  float64
}

// Result is the matcher's verdict for one target image.
type Result struct {
	Identity   string  `json:"identity"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	Verified   bool    `json:"verified"`
}

// Service wraps the face recognition helper process. The helper receives a
// base64 image and a path to an attendee JSON file, and prints a single JSON
// object to stdout; everything else it emits goes to stderr.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a face match service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Configured reports whether a matcher command is set.
func (s *Service) Configured() bool {
	return s != nil && strings.TrimSpace(s.cfg.Command) != ""
}

type candidate struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

type matcherOutput struct {
	Success bool `json:"success"`
	Match   *struct {
		Profile    candidate `json:"profile"`
		Confidence float64   `json:"confidence"`
		Distance   float64   `json:"distance"`
		Verified   bool      `json:"verified"`
	} `json:"match"`
	Error string `json:"error"`
}

// Match runs the helper against the attendees that have a photo and returns
// the best match, or nil when no candidate clears the confidence floor.
func (s *Service) Match(ctx context.Context, imageBase64 string, attendees []enrichment.Attendee) (*Result, error) {
	if !s.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "facematch", "run", "face match command not configured", nil)
	}
	imageBase64 = strings.TrimSpace(imageBase64)
	if imageBase64 == "" {
		return nil, services.Wrap(services.ErrValidation, "facematch", "run", "image payload required", nil)
	}

	candidates := buildCandidates(attendees)
	if len(candidates) == 0 {
		return nil, services.Wrap(services.ErrValidation, "facematch", "run", "no attendees with profile photos", nil)
	}

	path, cleanup, err := writeCandidateFile(candidates)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timeout := defaultTimeout
	if s.cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, err := s.run(runCtx, s.cfg.Command, imageBase64, path)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "facematch", "run", fmt.Sprintf("matcher exceeded %s", timeout), err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "facematch", "run", "matcher process failed", err)
	}

	var output matcherOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &output); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "facematch", "parse", "matcher produced invalid JSON", err)
	}
	if !output.Success {
		msg := strings.TrimSpace(output.Error)
		if msg == "" {
			msg = "matcher reported failure"
		}
		return nil, services.Wrap(services.ErrExternalTool, "facematch", "run", msg, nil)
	}
	if output.Match == nil || output.Match.Confidence < s.cfg.MinConfidence {
		return nil, nil
	}
	return &Result{
		Identity:   output.Match.Profile.Identity,
		Confidence: output.Match.Confidence,
		Distance:   output.Match.Distance,
		Verified:   output.Match.Verified,
	}, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func buildCandidates(attendees []enrichment.Attendee) []candidate {
	var out []candidate
	for _, attendee := range attendees {
		if attendee.Profile == nil || strings.TrimSpace(attendee.Profile.PhotoURL) == "" {
			continue
		}
		out = append(out, candidate{
			Identity: attendee.Identity,
			Name:     attendee.DisplayName,
			PhotoURL: attendee.Profile.PhotoURL,
		})
	}
	return out
}

func writeCandidateFile(candidates []candidate) (string, func(), error) {
	file, err := os.CreateTemp("", "opptrace-facematch-*.json")
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "facematch", "prepare", "create candidate file", err)
	}
	cleanup := func() { _ = os.Remove(file.Name()) }

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(candidates); err != nil {
		_ = file.Close()
		cleanup()
		return "", nil, services.Wrap(services.ErrExternalTool, "facematch", "prepare", "encode candidates", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, services.Wrap(services.ErrExternalTool, "facematch", "prepare", "close candidate file", err)
	}
	return file.Name(), cleanup, nil
}
