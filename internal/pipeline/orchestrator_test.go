package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/beucismis/backupill/internal/codec"
	"github.com/beucismis/backupill/internal/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		WorkerCount:         1,
		MaxQueueSize:        4,
		MaxConcurrentRender: 2,
		MaxEncodableSize:    140,
		OutputFormat:        "pdf",
		OutputDir:           t.TempDir(),
		JobTTL:              time.Hour,
	}
}

func waitForJob(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesJob(t *testing.T) {
	cfg := testConfig(t)
	o := NewOrchestrator(cfg, codec.NewStats(0), nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("hello.txt", "pdf", []byte(strings.Repeat("hello paper ", 30)))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	snap := waitForJob(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q with errors %v", snap.Status, snap.Progress.Errors)
	}
	out, ok := job.Output()
	if !ok || !strings.HasPrefix(out, cfg.OutputDir) || !strings.HasSuffix(out, job.ID+".pdf") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestOrchestrator_FailedJob(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxEncodableSize = 3
	o := NewOrchestrator(cfg, nil, nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("x.txt", "pdf", []byte("abc"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitForJob(t, job)
	if snap.Status != StatusFailed || len(snap.Progress.Errors) == 0 {
		t.Errorf("expected failed job with errors, got %+v", snap)
	}
	if snap.Phase != "chunking" {
		t.Errorf("expected failure in chunking phase, got %q", snap.Phase)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, nil, nil)

	if err := o.Submit(NewJob("a", "pdf", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob("b", "pdf", nil)
	if err := o.Submit(job); err == nil {
		t.Fatal("expected queue full error")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Error("expected rejected job to be marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
