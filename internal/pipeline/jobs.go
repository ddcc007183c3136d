package pipeline

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a backup job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusChunking  JobStatus = "chunking"
	StatusRendering JobStatus = "rendering"
	StatusWriting   JobStatus = "writing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single backup.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Format   string    `json:"format"`

	Progress Progress `json:"progress"`

	SHA256     string    `json:"sha256,omitempty"`
	OutputPath string    `json:"-"`
	Warning    string    `json:"warning,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks    int      `json:"total_chunks"`
	ChunksRendered int      `json:"chunks_rendered"`
	Pages          int      `json:"pages"`
	Errors         []string `json:"errors"`
}

// NewJob returns a queued job with a fresh id.
func NewJob(filename, format string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Format:    format,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs along with the documents they produced.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		out := job.OutputPath
		job.mu.Unlock()
		if !expired {
			continue
		}
		if out != "" {
			os.Remove(out)
		}
		delete(s.jobs, id)
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrChunksRendered atomically increments the rendered code count.
func (j *Job) IncrChunksRendered() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksRendered++
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// SetPages records the planned page count.
func (j *Job) SetPages(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = n
	j.UpdatedAt = time.Now()
}

// Complete marks the job done and records where its document lives.
func (j *Job) Complete(res *BackupResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.Phase = "done"
	j.OutputPath = res.Output
	j.SHA256 = res.SHA256
	j.Warning = res.Warning
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Output returns the document path once the job has completed.
func (j *Job) Output() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.OutputPath, j.Status == StatusCompleted
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Format   string    `json:"format"`
	SHA256   string    `json:"sha256,omitempty"`
	Warning  string    `json:"warning,omitempty"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Format:   j.Format,
		SHA256:   j.SHA256,
		Warning:  j.Warning,
		Progress: Progress{
			TotalChunks:    j.Progress.TotalChunks,
			ChunksRendered: j.Progress.ChunksRendered,
			Pages:          j.Progress.Pages,
			Errors:         errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
