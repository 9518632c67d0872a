package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cvpro-backend/internal/extract"
	"cvpro-backend/internal/llm"
	"cvpro-backend/internal/shared/metrics"
	"cvpro-backend/internal/shared/telemetry"
)

// State names a step of the per-request pipeline.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateFormatChecked State = "FORMAT_CHECKED"
	StateExtracted     State = "EXTRACTED"
	StatePrompted      State = "PROMPTED"
	StateAICalled      State = "AI_CALLED"
	StateParsed        State = "PARSED"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// TextExtractor reads plain text from a document on disk.
type TextExtractor interface {
	ExtractFile(ctx context.Context, path string, format extract.Format) (string, error)
}

// Upload is a received file. A nil *Upload means no file was attached.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Options tunes the pipeline.
type Options struct {
	// TempDir holds upload copies during extraction; empty uses os.TempDir.
	TempDir string
	// AITimeout bounds the whole AI stage, retries included.
	AITimeout      time.Duration
	ValidateSchema bool
}

// Service runs the upload -> text -> prompt -> AI -> JSON pipeline.
type Service struct {
	Extractor TextExtractor
	AI        llm.Client
	Opts      Options
}

// NewService constructs a Service. A nil AI client falls back to the
// placeholder, which fails every call.
func NewService(extractor TextExtractor, ai llm.Client, opts Options) *Service {
	if ai == nil {
		ai = llm.PlaceholderClient{}
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = 60 * time.Second
	}
	return &Service{Extractor: extractor, AI: ai, Opts: opts}
}

type run struct {
	requestID string
	state     State
	started   time.Time
}

func (r *run) advance(next State, fields map[string]any) {
	entry := map[string]any{
		"request_id": r.requestID,
		"from":       string(r.state),
		"state":      string(next),
	}
	for k, v := range fields {
		entry[k] = v
	}
	r.state = next
	telemetry.Info("ingest.state", entry)
}

// Ingest runs the pipeline for one upload and returns the structured
// resume JSON. Every failure is a terminal *Error; no partial result is
// returned. The temporary copy of the upload is always removed.
func (s *Service) Ingest(ctx context.Context, requestID string, up *Upload) (json.RawMessage, error) {
	r := &run{requestID: requestID, state: StateReceived, started: time.Now()}
	metrics.IncIngestStarted()
	telemetry.Info("ingest.state", map[string]any{"request_id": requestID, "state": string(StateReceived)})

	out, err := s.ingest(ctx, r, up)
	metrics.ObserveIngestDurationMs(float64(time.Since(r.started).Microseconds()) / 1000.0)
	if err != nil {
		var ierr *Error
		if !errors.As(err, &ierr) {
			ierr = newError(KindAIService, err.Error(), err)
		}
		metrics.IncIngestFailed(string(ierr.Kind))
		r.advance(StateFailed, map[string]any{"kind": string(ierr.Kind), "error": errorText(ierr)})
		return nil, ierr
	}
	metrics.IncIngestCompleted()
	r.advance(StateDone, map[string]any{"bytes": len(out)})
	return out, nil
}

func (s *Service) ingest(ctx context.Context, r *run, up *Upload) (json.RawMessage, error) {
	if up == nil || up.Body == nil {
		return nil, newError(KindBadRequest, MsgNoFile, nil)
	}
	format, ext := extract.FormatFromFileName(up.Filename)
	if format == extract.FormatUnsupported {
		return nil, newError(KindBadRequest, MsgUnsupportedFormat, nil)
	}
	r.advance(StateFormatChecked, map[string]any{"format": string(format), "ext": ext})

	text, err := s.extractUpload(ctx, up, format, ext)
	if err != nil {
		return nil, err
	}
	r.advance(StateExtracted, map[string]any{"text_len": len(text)})

	prompt := BuildPrompt(text)
	r.advance(StatePrompted, map[string]any{"prompt_len": len(prompt)})

	reply, err := s.callAI(ctx, prompt)
	if err != nil {
		return nil, err
	}
	r.advance(StateAICalled, map[string]any{"reply_len": len(reply)})

	outcome := ParseReply(reply, s.Opts.ValidateSchema)
	if !outcome.OK() {
		telemetry.Warn("ingest.parse_failed", map[string]any{
			"request_id": r.requestID,
			"raw":        truncate(outcome.Raw, 2000),
			"error":      outcome.Err.Error(),
		})
		return nil, newError(KindParse, "Failed to parse AI response: "+outcome.Err.Error(), outcome.Err)
	}
	r.advance(StateParsed, nil)
	return outcome.Resume, nil
}

// extractUpload copies the upload into a uniquely named temp file carrying
// the original extension, extracts it, and removes the file on every path.
func (s *Service) extractUpload(ctx context.Context, up *Upload, format extract.Format, ext string) (string, error) {
	tmp, err := os.CreateTemp(s.Opts.TempDir, "resume-*."+ext)
	if err != nil {
		return "", newError(KindExtraction, "failed to store upload", fmt.Errorf("create temp file: %w", err))
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			telemetry.Warn("ingest.tempfile.remove_failed", map[string]any{"path": path, "err": rmErr.Error()})
		}
	}()

	if _, err := io.Copy(tmp, up.Body); err != nil {
		tmp.Close()
		return "", newError(KindExtraction, "failed to read upload", fmt.Errorf("copy upload: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return "", newError(KindExtraction, "failed to store upload", fmt.Errorf("close temp file: %w", err))
	}

	text, err := s.Extractor.ExtractFile(ctx, path, format)
	if err != nil {
		return "", newError(KindExtraction, err.Error(), err)
	}
	return text, nil
}

func (s *Service) callAI(ctx context.Context, prompt string) (string, error) {
	aiCtx, cancel := context.WithTimeout(ctx, s.Opts.AITimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.AI.SendMessage(aiCtx, prompt)
	metrics.ObserveAIDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(aiCtx.Err(), context.DeadlineExceeded) {
			return "", newError(KindTimeout, MsgAITimeout, err)
		}
		return "", newError(KindAIService, err.Error(), err)
	}
	return reply, nil
}

func errorText(e *Error) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
