package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/core/ports"
)

func uploadRequest() ports.UploadRequest {
	return ports.UploadRequest{
		Filename:         "rebate form.pdf",
		MimeType:         "application/pdf",
		ProjectName:      "Voss Residence Solar",
		InstallerCompany: "GreenVolt Installations",
		DocumentType:     domain.TypeRebateForm,
	}
}

func TestUploadCreatesPendingDocumentAndPublishes(t *testing.T) {
	repo := &repoFake{}
	store := &storeFake{}
	queue := &queueFake{}
	uc := NewUploadDocumentUseCase(repo, store, queue, nil)

	doc, err := uc.Upload(context.Background(), uploadRequest(), bytes.NewBufferString("pdf-bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if repo.created == nil || repo.created.ID != doc.ID {
		t.Fatalf("document not persisted: %+v", repo.created)
	}
	if _, ok := store.saved[doc.StoragePath]; !ok {
		t.Fatalf("file not saved under %s", doc.StoragePath)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected uploaded event, got %+v", queue.published)
	}
	if doc.StoragePath == "" || bytes.ContainsAny([]byte(doc.StoragePath), " ") {
		t.Fatalf("storage key not sanitized: %q", doc.StoragePath)
	}
}

func TestUploadPublishFailureIsNonFatal(t *testing.T) {
	repo := &repoFake{}
	queue := &queueFake{publishErr: errors.New("nats down")}
	uc := NewUploadDocumentUseCase(repo, &storeFake{}, queue, nil)

	doc, err := uc.Upload(context.Background(), uploadRequest(), bytes.NewBufferString("x"))
	if err != nil {
		t.Fatalf("publish failure must not fail the upload, got %v", err)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("document should stay pending, got %s", doc.Status)
	}
}

func TestUploadRejectsUnknownDocumentType(t *testing.T) {
	req := uploadRequest()
	req.DocumentType = "tax_return"
	uc := NewUploadDocumentUseCase(&repoFake{}, &storeFake{}, &queueFake{}, nil)

	_, err := uc.Upload(context.Background(), req, bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadRejectsMissingMetadata(t *testing.T) {
	req := uploadRequest()
	req.ProjectName = "  "
	uc := NewUploadDocumentUseCase(&repoFake{}, &storeFake{}, &queueFake{}, nil)

	_, err := uc.Upload(context.Background(), req, bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	store := &storeFake{saveErr: errors.New("disk full")}
	repo := &repoFake{}
	uc := NewUploadDocumentUseCase(repo, store, &queueFake{}, nil)

	_, err := uc.Upload(context.Background(), uploadRequest(), bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("no document row must exist when the file save fails")
	}
}
