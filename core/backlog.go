package core

const (
	defaultBacklogCap   = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// backlog is the FIFO of jobs waiting for a worker slot.
// It is not safe for concurrent use; the dispatcher guards it with its mutex.
type backlog struct {
	jobs []*Job
}

func newBacklog() *backlog {
	return &backlog{jobs: make([]*Job, 0, defaultBacklogCap)}
}

func (b *backlog) Push(j *Job) {
	b.jobs = append(b.jobs, j)
}

func (b *backlog) Pop() (*Job, bool) {
	if len(b.jobs) == 0 {
		return nil, false
	}

	j := b.jobs[0]
	// Release the reference held by the underlying array
	b.jobs[0] = nil
	b.jobs = b.jobs[1:]
	b.maybeCompact()

	return j, true
}

// PushFront returns a job to the head of the backlog.
func (b *backlog) PushFront(j *Job) {
	b.jobs = append(b.jobs, nil)
	copy(b.jobs[1:], b.jobs)
	b.jobs[0] = j
}

func (b *backlog) Len() int {
	return len(b.jobs)
}

// CountOfType counts backlog jobs with the given tag that are not done.
func (b *backlog) CountOfType(t JobType) int {
	n := 0
	for _, j := range b.jobs {
		if j.jobType == t && !j.IsDone() {
			n++
		}
	}
	return n
}

// Clear drops every job and returns how many were dropped.
func (b *backlog) Clear() int {
	n := len(b.jobs)
	b.jobs = make([]*Job, 0, defaultBacklogCap)
	return n
}

func (b *backlog) maybeCompact() {
	n := len(b.jobs)
	c := cap(b.jobs)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		b.jobs = make([]*Job, 0, defaultBacklogCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultBacklogCap), n)

	jobs := make([]*Job, n, newCap)
	copy(jobs, b.jobs)
	b.jobs = jobs
}
