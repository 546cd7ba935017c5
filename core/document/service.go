package document

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

const (
	msgRequestSent      = "Upload request sent"
	msgNoResponse       = "No response from server"
	msgProcessing       = "Upload complete. Processing..."
	msgUploadFailed     = "Upload failed"
	msgPollFetchFailed  = "Failed to fetch status"
	msgRetrying         = "Retrying..."
	completedMessageFmt = "Completed! %d chunks indexed"
	failedMessageFmt    = "Failed: %s"
)

// Service coordinates document uploads: it drives the multipart upload,
// converts transport events into job progress, transitions completed uploads
// into polling and converges every job to a terminal state.
type Service struct {
	backend  Backend
	registry *Registry
	logger   core.Logger

	pollInterval time.Duration
	cleanupDelay time.Duration
	batchTimeout time.Duration

	mu        sync.Mutex
	polls     map[string]*pollSession // by document id
	uploading bool
	documents []Document // last server listing
}

func NewService(backend Backend, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		backend:      backend,
		registry:     NewRegistry(),
		logger:       logger,
		pollInterval: conf.Upload.PollInterval,
		cleanupDelay: conf.Upload.CleanupDelay,
		batchTimeout: conf.Upload.BatchTimeout,
		polls:        make(map[string]*pollSession),
	}
}

// Registry exposes the live job read model consumed by the dashboard.
func (svc *Service) Registry() *Registry { return svc.registry }

// Upload performs one multipart upload and registers the resulting ingestion
// job with the poller on success. The job state is tracked in the registry
// under the file name either way; transport errors are returned to the caller
// after the job is marked failed.
func (svc *Service) Upload(ctx context.Context, up *NewUpload) (*UploadResult, error) {
	if err := up.Validate(); err != nil {
		return nil, err
	}

	job := &UploadJob{
		ID:       uuid.New().String(),
		Filename: up.Filename,
		Status:   StatusUploading,
		Message:  msgRequestSent,
	}
	svc.registry.Put(job)

	res, err := svc.backend.UploadDocument(ctx, up, func(pct int) {
		svc.registry.Update(up.Filename, func(j *UploadJob) { j.Progress = pct })
	})
	if err != nil {
		msg := uploadErrorMessage(err)
		svc.registry.Update(up.Filename, func(j *UploadJob) {
			j.Status = StatusFailed
			j.Message = msg
		})
		return nil, err
	}
	if res == nil {
		svc.registry.Update(up.Filename, func(j *UploadJob) {
			j.Status = StatusFailed
			j.Message = msgNoResponse
		})
		return nil, errors.New(msgNoResponse)
	}

	if res.Success && res.DocumentID != "" {
		msg := res.Message
		if msg == "" {
			msg = msgProcessing
		}
		svc.registry.Update(up.Filename, func(j *UploadJob) {
			j.DocumentID = res.DocumentID
			j.Status = StatusProcessing
			j.Progress = 100
			j.Message = msg
		})
		svc.PollProcessing(res.DocumentID, up.Filename)
		return res, nil
	}

	// the server answered but rejected the document
	msg := res.Error
	if msg == "" {
		msg = res.Detail
	}
	if msg == "" {
		msg = msgUploadFailed
	}
	svc.registry.Update(up.Filename, func(j *UploadJob) {
		j.Status = StatusFailed
		j.Message = msg
	})
	return res, nil
}

// UploadAll submits a batch of uploads sequentially. The uploading flag stays
// up while the batch is unresolved; a safety timer bounds the total wait: past
// the batch timeout the flag is forced down and the document listing refreshed
// from the server regardless of upload or poller health.
func (svc *Service) UploadAll(ctx context.Context, ups []*NewUpload) error {
	svc.setUploading(true)
	timer := time.AfterFunc(svc.batchTimeout, func() {
		svc.setUploading(false)
		if err := svc.RefreshDocuments(context.Background()); err != nil {
			svc.logger.Warn("refreshing documents after batch timeout", err)
		}
	})
	defer func() {
		timer.Stop()
		svc.setUploading(false)
	}()

	var firstErr error
	for _, up := range ups {
		if _, err := svc.Upload(ctx, up); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Uploading reports whether a batch upload is still unresolved.
func (svc *Service) Uploading() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.uploading
}

func (svc *Service) setUploading(up bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.uploading = up
}

// ClearCompletedUploads removes every terminal job from the registry. Idempotent.
func (svc *Service) ClearCompletedUploads() {
	svc.registry.ClearCompleted()
}

// RefreshDocuments reloads the server-side document listing.
func (svc *Service) RefreshDocuments(ctx context.Context) error {
	docs, err := svc.backend.ListDocuments(ctx)
	if err != nil {
		return err
	}
	svc.mu.Lock()
	svc.documents = docs
	svc.mu.Unlock()
	return nil
}

// Documents returns the last refreshed server-side listing.
func (svc *Service) Documents() []Document {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.documents
}

// Retry asks the server to reprocess a failed document and puts its job,
// when still registered, back under the poller.
func (svc *Service) Retry(ctx context.Context, documentID string) error {
	if err := svc.backend.RetryDocument(ctx, documentID); err != nil {
		return err
	}
	if filename, ok := svc.filenameFor(documentID); ok {
		svc.registry.Update(filename, func(j *UploadJob) {
			j.RetryCount++
			j.Status = StatusProcessing
			j.Message = msgRetrying
		})
		svc.PollProcessing(documentID, filename)
	}
	return nil
}

func (svc *Service) Delete(ctx context.Context, documentID string) error {
	if err := svc.backend.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if filename, ok := svc.filenameFor(documentID); ok {
		svc.registry.Remove(filename)
	}
	return nil
}

func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	return svc.backend.Stats(ctx)
}

func (svc *Service) filenameFor(documentID string) (string, bool) {
	for _, job := range svc.registry.Active() {
		if job.DocumentID == documentID {
			return job.Filename, true
		}
	}
	return "", false
}

// uploadErrorMessage extracts a human message from a failed upload, most
// specific source first: the body's error/detail/message fields, then the
// HTTP status line, then the raw transport error.
func uploadErrorMessage(err error) string {
	if apiErr, ok := errors.Cause(err).(*core.APIError); ok {
		if msg := apiErr.ExtractMessage(); msg != "" {
			return msg
		}
		if apiErr.Status > 0 {
			return fmt.Sprintf("%d: %s", apiErr.Status, http.StatusText(apiErr.Status))
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return msgUploadFailed
}
