package document

import "sync"

// Registry is the process-wide collection of live upload jobs, keyed by
// filename. The derived snapshot is recomputed on every mutation so readers
// never observe a job mid-update.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*UploadJob
	view []UploadJob
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*UploadJob)}
}

// Put registers a job, overwriting any existing entry under the same filename.
func (r *Registry) Put(job *UploadJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Filename] = job
	r.recompute()
}

// Get returns a copy of the job registered under filename.
func (r *Registry) Get(filename string) (UploadJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[filename]
	if !ok {
		return UploadJob{}, false
	}
	return *job, true
}

// Update mutates the job registered under filename through fn and reports
// whether the job was found.
func (r *Registry) Update(filename string, fn func(*UploadJob)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[filename]
	if !ok {
		return false
	}
	fn(job)
	r.recompute()
	return true
}

// Remove drops the job registered under filename, if any.
func (r *Registry) Remove(filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[filename]; !ok {
		return
	}
	delete(r.jobs, filename)
	r.recompute()
}

// ClearCompleted removes every job in a terminal state. Idempotent.
func (r *Registry) ClearCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed bool
	for filename, job := range r.jobs {
		if job.Status.Terminal() {
			delete(r.jobs, filename)
			changed = true
		}
	}
	if changed {
		r.recompute()
	}
}

// Active returns the derived read model: the current values of all jobs.
func (r *Registry) Active() []UploadJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// recompute rebuilds the derived view; callers must hold the write lock.
func (r *Registry) recompute() {
	view := make([]UploadJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		view = append(view, *job)
	}
	r.view = view
}
