package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Registry_PutOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&UploadJob{ID: "a", Filename: "algebra.pdf", Status: StatusUploading})
	reg.Put(&UploadJob{ID: "b", Filename: "algebra.pdf", Status: StatusProcessing})

	if reg.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", reg.Len())
	}
	job, ok := reg.Get("algebra.pdf")
	if !ok {
		t.Fatal("job not found")
	}
	if job.ID != "b" {
		t.Errorf("same-filename Put should overwrite; got job %q", job.ID)
	}
}

func Test_Registry_UpdateRecomputesView(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&UploadJob{Filename: "algebra.pdf", Status: StatusUploading})

	before := reg.Active()
	if !reg.Update("algebra.pdf", func(j *UploadJob) { j.Progress = 42 }) {
		t.Fatal("Update() did not find the job")
	}
	after := reg.Active()

	if before[0].Progress != 0 {
		t.Errorf("earlier snapshot mutated; Progress = %d", before[0].Progress)
	}
	if after[0].Progress != 42 {
		t.Errorf("derived view not recomputed; Progress = %d", after[0].Progress)
	}

	if reg.Update("nope.pdf", func(j *UploadJob) {}) {
		t.Error("Update() on an unknown filename should report false")
	}
}

func Test_Registry_ClearCompleted(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&UploadJob{Filename: "a.pdf", Status: StatusUploading})
	reg.Put(&UploadJob{Filename: "b.pdf", Status: StatusProcessing})
	reg.Put(&UploadJob{Filename: "c.pdf", Status: StatusCompleted})
	reg.Put(&UploadJob{Filename: "d.pdf", Status: StatusFailed})

	reg.ClearCompleted()
	assert.Equal(t, 2, reg.Len())
	if _, ok := reg.Get("c.pdf"); ok {
		t.Error("completed job should have been cleared")
	}
	if _, ok := reg.Get("d.pdf"); ok {
		t.Error("failed job should have been cleared")
	}

	// idempotent
	view := reg.Active()
	reg.ClearCompleted()
	assert.Equal(t, 2, reg.Len())
	assert.ElementsMatch(t, view, reg.Active())
}

func Test_Registry_Remove(t *testing.T) {
	reg := NewRegistry()
	reg.Put(&UploadJob{Filename: "a.pdf", Status: StatusCompleted})

	reg.Remove("a.pdf")
	if reg.Len() != 0 {
		t.Errorf("Len() = %d; want 0", reg.Len())
	}
	reg.Remove("a.pdf") // no-op
}
