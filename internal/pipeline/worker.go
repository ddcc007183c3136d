package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Worker processes a single backup job.
type Worker struct {
	enc       *Encoder
	log       *slog.Logger
	outputDir string
	maxSize   int
	verify    bool
}

func NewWorker(enc *Encoder, log *slog.Logger, outputDir string, maxSize int) *Worker {
	return &Worker{
		enc:       enc,
		log:       log,
		outputDir: outputDir,
		maxSize:   maxSize,
		verify:    true,
	}
}

// Process runs the full backup pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	req := BackupRequest{
		Name:             job.Filename,
		Data:             job.FileData(),
		Output:           filepath.Join(w.outputDir, job.ID+"."+job.Format),
		Format:           job.Format,
		MaxEncodableSize: w.maxSize,
		Verify:           w.verify,
	}
	res, err := w.enc.Backup(ctx, req, job)
	if err != nil {
		log.Error("backup failed", "phase", job.Snapshot().Phase, "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}
	job.Complete(res)
	log.Info("job complete", "chunks", res.Chunks, "pages", res.Pages)
}
