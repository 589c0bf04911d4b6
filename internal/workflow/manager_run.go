package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"ugoira/internal/config"
	"ugoira/internal/delivery"
	"ugoira/internal/frame"
	"ugoira/internal/history"
	"ugoira/internal/logging"
	"ugoira/internal/progress"
	"ugoira/internal/services"
	"ugoira/internal/ugoira"
)

// Run executes job synchronously. The returned error is classified with the
// services markers; the same outcome is mirrored into progress and history.
func (m *Manager) Run(ctx context.Context, job Job) (*Outcome, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	ctx = services.WithConversionID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	format := job.format(m.cfg)
	started := m.now()
	rec := history.Record{
		ID:         job.ID,
		Author:     job.Author,
		Title:      job.Title,
		SourcePath: job.BundlePath,
		Format:     format,
		StartedAt:  started,
	}

	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_start"),
		logging.String("bundle", job.BundlePath),
		logging.String("format", format),
	)

	out, err := m.run(ctx, job, format, logger, &rec)
	rec.FinishedAt = m.now()
	if err != nil {
		rec.Status = historyStatus(err)
		rec.ErrorMessage = err.Error()
		m.report(m.progress.Fail(job.ID, err))
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String("history_status", string(rec.Status)),
			logging.Duration("elapsed", rec.FinishedAt.Sub(started)),
			logging.Error(err),
		)
		m.record(ctx, logger, rec)
		return nil, err
	}

	out.Duration = rec.FinishedAt.Sub(started)
	rec.Status = history.StatusCompleted
	m.report(m.progress.Complete(job.ID, out.Path))
	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_complete"),
		logging.String("path", out.Path),
		logging.String("strategy", out.Strategy),
		logging.Int("frames", out.Frames),
		logging.Int64("bytes", out.Bytes),
		logging.Duration("elapsed", out.Duration),
	)
	m.record(ctx, logger, rec)
	return out, nil
}

func (m *Manager) run(ctx context.Context, job Job, format string, logger *slog.Logger, rec *history.Record) (*Outcome, error) {
	if m.preflight {
		if err := m.runPreflightChecks(logger); err != nil {
			return nil, err
		}
	}

	fetchCtx := services.WithPhase(ctx, string(progress.PhaseFetching))
	m.setProgress(job.ID, progress.PhaseFetching, 0, "reading metadata")
	meta, err := m.loadMetadata(job)
	if err != nil {
		return nil, err
	}
	m.setProgress(job.ID, progress.PhaseFetching, 100, "metadata ready")

	extractCtx := services.WithPhase(fetchCtx, string(progress.PhaseExtracting))
	m.setProgress(job.ID, progress.PhaseExtracting, 0, "extracting frames")
	frames, meta, err := ugoira.ExtractFile(extractCtx, job.BundlePath, ugoira.ExtractOptions{
		Metadata:       meta,
		DefaultDelayMS: m.cfg.Conversion.DefaultDelayMS,
	})
	if err != nil {
		return nil, classifyInputError(string(progress.PhaseExtracting), "extract bundle", err)
	}
	if meta != nil {
		rec.IllustID = meta.IllustID.String()
	}
	rec.Frames = len(frames)
	m.setProgress(job.ID, progress.PhaseExtracting, 100, fmt.Sprintf("%d frames", len(frames)))
	logging.WithContext(extractCtx, logger).Info("frames extracted",
		logging.String(logging.FieldEventType, "frames_extracted"),
		logging.Int("frames", len(frames)),
		logging.Int("total_delay_ms", totalDelay(frames)),
	)

	convertCtx := services.WithPhase(ctx, string(progress.PhaseConverting))
	data, mimeType, strategy, err := m.encode(convertCtx, job.ID, format, frames, logger)
	if err != nil {
		return nil, err
	}
	rec.Strategy = strategy

	m.setProgress(job.ID, progress.PhaseConverting, 100, "saving")
	saved, err := m.deliverer.Save(convertCtx, delivery.Request{
		Author:   job.Author,
		Title:    job.Title,
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrDelivery, "delivering", "save output", "", err)
	}
	rec.OutputPath = saved.Path
	rec.Bytes = saved.Bytes
	rec.SHA256 = saved.SHA256

	return &Outcome{
		ID:       job.ID,
		IllustID: rec.IllustID,
		Path:     saved.Path,
		Format:   format,
		Strategy: strategy,
		Frames:   len(frames),
		Bytes:    saved.Bytes,
		SHA256:   saved.SHA256,
		Renamed:  saved.Renamed,
	}, nil
}

func (m *Manager) loadMetadata(job Job) (*ugoira.Metadata, error) {
	if job.Metadata != nil || job.MetadataPath == "" {
		return job.Metadata, nil
	}
	meta, err := ugoira.ReadMetadataFile(job.MetadataPath)
	if err != nil {
		return nil, classifyInputError(string(progress.PhaseFetching), "read metadata", err)
	}
	return meta, nil
}

func (m *Manager) encode(ctx context.Context, id, format string, frames []frame.Frame, logger *slog.Logger) ([]byte, string, string, error) {
	m.setProgress(id, progress.PhaseConverting, 0, "converting")
	switch format {
	case config.FormatZIP:
		var buf bytes.Buffer
		if err := ugoira.WriteBundle(&buf, frames); err != nil {
			return nil, "", "", services.Wrap(services.ErrEncode, "converting", "write bundle", "", err)
		}
		return buf.Bytes(), ugoira.BundleMIMEType, "", nil
	case config.FormatGIF:
		phaseLogger := logging.WithContext(ctx, logger)
		sampler := logging.NewProgressSampler(m.cfg.Progress.LogBucketPercent)
		res, err := m.converter(phaseLogger).Convert(ctx, frames, func(v float64) {
			m.setProgress(id, progress.PhaseConverting, v*100, "converting")
			if sampler.ShouldLog(v, string(progress.PhaseConverting)) {
				phaseLogger.Info("conversion progress",
					logging.String(logging.FieldEventType, "conversion_progress"),
					logging.Float64("percent", v*100),
				)
			}
		})
		if err != nil {
			return nil, "", "", services.Wrap(services.ErrEncode, "converting", "convert frames", "", err)
		}
		return res.Data, res.MIMEType, res.Strategy, nil
	default:
		return nil, "", "", services.Wrap(services.ErrConfiguration, "converting", "select format",
			fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

func (m *Manager) setProgress(id string, phase progress.Phase, percent float64, message string) {
	m.report(m.progress.Set(id, phase, percent, message))
}

func (m *Manager) report(e progress.Entry) {
	if m.observer != nil {
		m.observer(e)
	}
}

func (m *Manager) record(ctx context.Context, logger *slog.Logger, rec history.Record) {
	if m.history == nil || !m.cfg.History.Enabled {
		return
	}
	if err := m.history.Add(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "conversion is missing from history"),
			logging.String(logging.FieldErrorHint, "run 'ugoira status' to check the data directory"),
		)
	}
}

func classifyInputError(phase, operation string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTransient, phase, operation, "interrupted", err)
	case errors.Is(err, os.ErrNotExist):
		return services.Wrap(services.ErrNotFound, phase, operation, "", err)
	default:
		return services.Wrap(services.ErrValidation, phase, operation, "", err)
	}
}

func historyStatus(err error) history.Status {
	if services.FailureStatus(err) == services.StatusReview {
		return history.StatusReview
	}
	return history.StatusFailed
}

func totalDelay(frames []frame.Frame) int {
	total := 0
	for _, f := range frames {
		total += f.DelayMS
	}
	return total
}
