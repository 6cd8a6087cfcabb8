// Package runner executes JavaScript snippets in an isolated sandbox and captures console output.
package runner

import (
	"context"
	"strings"
	"time"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/telemetry"
	"github.com/google/uuid"
)

const (
	MaxCodeBytes = 64 * 1024
	// ExitTimeout is reported when the sandbox killed the program for running too long.
	ExitTimeout = 124
	// ExitOutputLimit is reported when the program was stopped for printing too much.
	ExitOutputLimit = 125
)

type Request struct {
	Code string
}

type Result struct {
	Stdout string
	Stderr string
	// Console holds one entry per console.log call when the executor can tell calls apart.
	// Nil means Stdout is split by line.
	Console   []string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// Executor runs one program in an isolated environment.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type RunInput struct {
	Code     string
	Language string
	ClientIP string
}

type Output struct {
	RunID      string   `json:"run_id"`
	Console    []string `json:"console"`
	Error      string   `json:"error,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	ExitCode   int      `json:"exit_code"`
	TimedOut   bool     `json:"timed_out"`
	Truncated  bool     `json:"truncated,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type Service struct {
	Executor Executor
	Limiter  RateLimiter
}

func (s *Service) Enabled() bool {
	return s != nil && s.Executor != nil
}

func (s *Service) Run(ctx context.Context, in RunInput) (Output, error) {
	if !s.Enabled() {
		return Output{}, apperrors.New(apperrors.KindUnavailable, "code runner is disabled")
	}
	if lang := strings.ToLower(strings.TrimSpace(in.Language)); lang != "" && lang != "javascript" && lang != "js" {
		return Output{}, apperrors.New(apperrors.KindInvalidInput, "only javascript can be run")
	}
	if strings.TrimSpace(in.Code) == "" {
		return Output{}, apperrors.New(apperrors.KindInvalidInput, "code is required")
	}
	if len(in.Code) > MaxCodeBytes {
		return Output{}, apperrors.New(apperrors.KindInvalidInput, "code is too large")
	}
	if err := s.throttle(ctx, in.ClientIP); err != nil {
		return Output{}, err
	}

	runID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "runner.run", telemetry.RunAttrs(runID, len(in.Code))...)
	defer span.End()

	res, err := s.Executor.Execute(ctx, Request{Code: in.Code})
	if err != nil {
		span.RecordError(err)
		telemetry.RecordRun(ctx, "unavailable", 0)
		return Output{}, apperrors.Wrap(apperrors.KindUnavailable, "sandbox unavailable", err)
	}

	out := Output{
		RunID:      runID,
		Console:    res.Console,
		Stderr:     res.Stderr,
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut || res.ExitCode == ExitTimeout,
		Truncated:  res.Truncated,
		DurationMS: res.Duration.Milliseconds(),
	}
	if out.Console == nil {
		out.Console = consoleLines(res.Stdout)
	}
	if out.ExitCode != 0 {
		out.Error = errorLine(res.Stderr, out.TimedOut, out.Truncated)
	}
	telemetry.RecordRun(ctx, outcome(out), res.Duration)
	return out, nil
}

func outcome(out Output) string {
	switch {
	case out.Truncated:
		return "truncated"
	case out.TimedOut:
		return "timeout"
	case out.ExitCode != 0:
		return "error"
	default:
		return "ok"
	}
}

func (s *Service) throttle(ctx context.Context, clientIP string) error {
	if s.Limiter == nil {
		return nil
	}
	key := "run:ip:" + clientIP
	if p := identity.From(ctx); !p.Anonymous() {
		key = "run:user:" + p.UserID
	}
	allowed, retryAfter, err := s.Limiter.Allow(ctx, key)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "rate limit error", err)
	}
	if !allowed {
		return apperrors.RateLimit("too many runs", retryAfter)
	}
	return nil
}

func consoleLines(stdout string) []string {
	stdout = strings.TrimRight(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	if stdout == "" {
		return []string{}
	}
	return strings.Split(stdout, "\n")
}

// errorLine picks the thrown error message out of a node stack trace.
func errorLine(stderr string, timedOut, truncated bool) string {
	switch {
	case truncated:
		return "output limit exceeded"
	case timedOut:
		return "execution timed out"
	}
	var fallback string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "at ") || line == "^" {
			continue
		}
		if fallback == "" {
			fallback = line
		}
		if strings.Contains(line, "Error:") {
			return line
		}
	}
	if fallback == "" {
		return "execution failed"
	}
	return fallback
}
