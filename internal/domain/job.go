package domain

import "time"

// JobStatus is the externally visible lifecycle status of a generation job.
// Values include JobStatusQueued, JobStatusRunning, JobStatusDone, and JobStatusError.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// IsTerminal reports whether no further transition is allowed out of the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// JobKind identifies which pipeline owns a job.
type JobKind string

const (
	JobKindHTML  JobKind = "html"
	JobKindVideo JobKind = "video"
)

// JobState is the closed set of job states. Only the fields of the active
// variant exist, so a result can never be read off a queued job.
type JobState interface {
	Status() JobStatus
	isJobState()
}

// Queued is the state of a freshly submitted job.
type Queued struct{}

// Running is the state while a worker is executing the pipeline.
type Running struct {
	StartedAt time.Time
}

// Done carries the finished artifact.
type Done struct {
	// ArtifactRef is a file name (HTML) or URL (video).
	ArtifactRef string
	// ArtifactURL is set when the artifact was mirrored to object storage.
	ArtifactURL string
	// Content holds the validated markup for HTML jobs and is empty for video jobs.
	Content     string
	CompletedAt time.Time
}

// Failed carries a human-readable failure message.
type Failed struct {
	Message     string
	CompletedAt time.Time
}

func (Queued) Status() JobStatus  { return JobStatusQueued }
func (Running) Status() JobStatus { return JobStatusRunning }
func (Done) Status() JobStatus    { return JobStatusDone }
func (Failed) Status() JobStatus  { return JobStatusError }

func (Queued) isJobState()  {}
func (Running) isJobState() {}
func (Done) isJobState()    {}
func (Failed) isJobState()  {}

// CanTransition reports whether a job may move from one status to another.
// Transitions are strictly forward: queued -> running -> {done|error}, plus
// queued -> error for jobs that fail before a worker picks them up.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusRunning || to == JobStatusError
	case JobStatusRunning:
		return to == JobStatusDone || to == JobStatusError
	default:
		return false
	}
}

// Diagnostics are status-independent fields echoed on every status read.
type Diagnostics struct {
	Cmd            string
	ReturnCode     *int
	StdoutTail     string
	StderrTail     string
	RenderAttempts int
	Repairs        int
	KnowledgeTopic string
}

// Clone returns a copy that shares no memory with d.
func (d Diagnostics) Clone() Diagnostics {
	out := d
	if d.ReturnCode != nil {
		rc := *d.ReturnCode
		out.ReturnCode = &rc
	}
	return out
}

// Job is one tracked generation request.
type Job struct {
	ID          string
	Kind        JobKind
	Prompt      string
	Model       string
	CreatedAt   time.Time
	State       JobState
	Diagnostics Diagnostics
}

// Status returns the status of the current state.
func (j Job) Status() JobStatus {
	if j.State == nil {
		return JobStatusQueued
	}
	return j.State.Status()
}

// Clone returns a point-in-time copy of the job. State variants are plain
// values, so copying the interface is enough for them.
func (j Job) Clone() Job {
	out := j
	out.Diagnostics = j.Diagnostics.Clone()
	return out
}

// CompletedAt returns the terminal timestamp, or zero when the job is still live.
func (j Job) CompletedAt() time.Time {
	switch s := j.State.(type) {
	case Done:
		return s.CompletedAt
	case Failed:
		return s.CompletedAt
	default:
		return time.Time{}
	}
}
