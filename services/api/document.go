package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/document"
)

var _ document.Backend = (*Client)(nil)

// UploadDocument performs one multipart upload, reporting transport progress
// as the body is written out. A nil result with a nil error means the server
// answered with an empty body.
func (c *Client) UploadDocument(ctx context.Context, up *document.NewUpload, onProgress func(pct int)) (*document.UploadResult, error) {
	body, contentType, err := multipartBody(up)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/documents/upload",
		contentType: contentType,
		body:        body,
		onProgress:  onProgress,
	})
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "reading upload response")
	}
	if len(raw) == 0 {
		return nil, nil
	}
	res := new(document.UploadResult)
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, errors.Wrap(err, "decoding upload response")
	}
	return res, nil
}

// multipartBody encodes the upload as the multipart form the ingestion API
// expects; optional metadata fields are omitted when empty.
func multipartBody(up *document.NewUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating file part")
	}
	if _, err := io.Copy(part, up.File); err != nil {
		return nil, "", errors.Wrap(err, "reading file")
	}

	fields := map[string]string{
		"document_type":   up.DocumentType,
		"subject":         up.Subject,
		"grade":           up.Grade,
		"education_level": up.EducationLevel,
		"term":            up.Term,
	}
	if up.Year > 0 {
		fields["year"] = strconv.Itoa(up.Year)
	}
	if up.PaperNumber > 0 {
		fields["paper_number"] = strconv.Itoa(up.PaperNumber)
	}
	fields["process_immediately"] = strconv.FormatBool(up.Immediate())

	for name, val := range fields {
		if val == "" {
			continue
		}
		if err := w.WriteField(name, val); err != nil {
			return nil, "", errors.Wrapf(err, "writing field %q", name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart body")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*document.ProcessingStatus, error) {
	status := new(document.ProcessingStatus)
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+id, nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]document.Document, error) {
	var out struct {
		Documents []document.Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) RetryDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/documents/"+id+"/retry", nil, nil)
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+id, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*document.Stats, error) {
	stats := new(document.Stats)
	if err := c.doJSON(ctx, http.MethodGet, "/rag/stats", nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// progressReader reports upload progress as the multipart body is consumed
// by the transport.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(pct int)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 && pr.total > 0 {
		pr.sent += int64(n)
		pr.onProgress(int(math.Round(float64(pr.sent) / float64(pr.total) * 100)))
	}
	return n, err
}
