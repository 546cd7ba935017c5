package document

import (
	"context"
	"io"
	"time"

	"github.com/trezcool/masomo-admin/core"
)

// Status of an upload job tracked in the registry.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// remote ingestion statuses (GET /documents/{id})
const (
	remoteStatusPending    = "pending"
	remoteStatusProcessing = "processing"
	remoteStatusCompleted  = "completed"
	remoteStatusFailed     = "failed"
)

// UploadJob is the live state of one upload-and-ingestion job, consumed by
// the dashboard as a read model. Jobs are keyed by filename in the registry;
// ID is a correlation attribute.
type UploadJob struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Progress   int    `json:"progress"` // 0..100
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// NewUpload contains everything needed to submit a document for ingestion.
type NewUpload struct {
	Filename string    `json:"filename" validate:"required"`
	File     io.Reader `json:"-" validate:"required"`

	DocumentType   string `json:"document_type" validate:"required,doctype"`
	Subject        string `json:"subject"`
	Grade          string `json:"grade"`
	EducationLevel string `json:"education_level"`
	Year           int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	PaperNumber    int    `json:"paper_number" validate:"omitempty,gte=1"`
	Term           string `json:"term"`

	// ProcessImmediately defaults to true when unset.
	ProcessImmediately *bool `json:"process_immediately"`
}

func (nu *NewUpload) Validate() error {
	nu.Filename = core.CleanString(nu.Filename)
	nu.DocumentType = core.CleanString(nu.DocumentType, true /* lower */)
	nu.Subject = core.CleanString(nu.Subject)
	nu.Grade = core.CleanString(nu.Grade)
	nu.EducationLevel = core.CleanString(nu.EducationLevel)
	nu.Term = core.CleanString(nu.Term)
	return core.TranslateError(core.Validate.Struct(nu))
}

// Immediate resolves the ProcessImmediately flag with its default.
func (nu *NewUpload) Immediate() bool {
	if nu.ProcessImmediately == nil {
		return true
	}
	return *nu.ProcessImmediately
}

// UploadResult is the body of a POST /documents/upload response.
type UploadResult struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	Detail     string `json:"detail"`
}

// ProcessingStatus is the body of a GET /documents/{id} response.
type ProcessingStatus struct {
	Status             string `json:"status"` // pending | processing | completed | failed
	ProcessingProgress int    `json:"processing_progress"`
	ChunksIndexed      int    `json:"chunks_indexed"`
	Error              string `json:"error"`
	ProcessingMetadata struct {
		LastMessage string `json:"last_message"`
	} `json:"processing_metadata"`
}

// Processing reports whether the remote job has not reached a terminal state yet.
func (ps *ProcessingStatus) Processing() bool {
	return ps.Status == remoteStatusPending || ps.Status == remoteStatusProcessing
}

// Document is one entry of the GET /documents listing.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	DocumentType string    `json:"document_type"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Stats is the body of a GET /rag/stats response.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
	Pending        int `json:"pending"`
	Processing     int `json:"processing"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
}

// Backend is the document-processing API surface consumed by the Service.
type Backend interface {
	// UploadDocument performs one multipart upload, reporting transport-level
	// progress (0..100) through onProgress. A nil result with a nil error
	// means the server returned no usable body.
	UploadDocument(ctx context.Context, up *NewUpload, onProgress func(pct int)) (*UploadResult, error)
	GetDocument(ctx context.Context, id string) (*ProcessingStatus, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	RetryDocument(ctx context.Context, id string) error
	DeleteDocument(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}
