package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/services"
)

type stubSigner struct {
	uploadURL   string
	downloadURL string
	expires     time.Time
	err         error

	uploadCalls  int
	lastBucket   string
	lastObject   string
	lastDuration time.Duration
}

func (s *stubSigner) SignedUploadURL(_ context.Context, bucket, objectName, _ string, ttl time.Duration) (string, time.Time, error) {
	s.uploadCalls++
	s.lastBucket = bucket
	s.lastObject = objectName
	s.lastDuration = ttl
	return s.uploadURL, s.expires, s.err
}

func (s *stubSigner) SignedDownloadURL(_ context.Context, bucket, objectName string, _ time.Duration) (string, time.Time, error) {
	s.lastBucket = bucket
	s.lastObject = objectName
	return s.downloadURL, s.expires, s.err
}

func newUploadService(t *testing.T, signer services.UploadSigner) *services.UploadService {
	t.Helper()
	svc, err := services.NewUploadService(signer, configloader.GCSConfig{
		UploadsBucket: "uploads-bucket",
		JobsBucket:    "jobs-bucket",
		SignedURLTTL:  configloader.Duration(15 * time.Minute),
	}, configloader.LimitsConfig{
		MaxPDFBytes: 31457280,
		MaxPages:    150,
	}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	return svc
}

func validInput() services.IssueUploadHandleInput {
	return services.IssueUploadHandleInput{
		FileName:      "deck.pdf",
		ContentType:   "application/pdf",
		ContentLength: 1024,
		ContentSHA256: strings.Repeat("a", 64),
	}
}

func TestIssueUploadHandle(t *testing.T) {
	signer := &stubSigner{uploadURL: "https://signed.example/put", expires: time.Now().Add(15 * time.Minute)}
	svc := newUploadService(t, signer)

	handle, err := svc.IssueUploadHandle(context.Background(), validInput())
	if err != nil {
		t.Fatalf("IssueUploadHandle: %v", err)
	}
	if !strings.HasPrefix(handle.UploadID, "upl_") {
		t.Fatalf("unexpected upload id: %s", handle.UploadID)
	}
	if handle.ObjectPath != "uploads/"+handle.UploadID+"/source.pdf" {
		t.Fatalf("unexpected object path: %s", handle.ObjectPath)
	}
	if handle.UploadURL != signer.uploadURL {
		t.Fatalf("unexpected url: %s", handle.UploadURL)
	}
	if handle.Headers["Content-Type"] != "application/pdf" {
		t.Fatalf("missing content-type header")
	}
	if handle.Headers["x-goog-content-sha256"] != "UNSIGNED-PAYLOAD" {
		t.Fatalf("missing unsigned payload header")
	}
	if handle.MaxBytes != 31457280 || handle.MaxPages != 150 {
		t.Fatalf("unexpected limits: %d %d", handle.MaxBytes, handle.MaxPages)
	}
	if signer.lastBucket != "uploads-bucket" {
		t.Fatalf("signed against wrong bucket: %s", signer.lastBucket)
	}
}

func TestIssueUploadHandle_TooLarge(t *testing.T) {
	signer := &stubSigner{uploadURL: "https://signed.example/put"}
	svc := newUploadService(t, signer)

	input := validInput()
	input.ContentLength = 31457281
	_, err := svc.IssueUploadHandle(context.Background(), input)
	if err == nil {
		t.Fatalf("expected error")
	}
	ke := kerrors.FromError(err)
	if ke.Reason != "PDF_TOO_LARGE" || ke.Code != 400 {
		t.Fatalf("expected PDF_TOO_LARGE 400, got %s %d", ke.Reason, ke.Code)
	}
	if signer.uploadCalls != 0 {
		t.Fatalf("no handle should be issued for oversized uploads")
	}
}

func TestIssueUploadHandle_Validation(t *testing.T) {
	svc := newUploadService(t, &stubSigner{})

	cases := map[string]func(*services.IssueUploadHandleInput){
		"missing file name":  func(in *services.IssueUploadHandleInput) { in.FileName = " " },
		"wrong content type": func(in *services.IssueUploadHandleInput) { in.ContentType = "image/png" },
		"zero length":        func(in *services.IssueUploadHandleInput) { in.ContentLength = 0 },
		"bad sha256":         func(in *services.IssueUploadHandleInput) { in.ContentSHA256 = "XYZ" },
		"uppercase sha256":   func(in *services.IssueUploadHandleInput) { in.ContentSHA256 = strings.Repeat("A", 64) },
	}
	for name, mutate := range cases {
		input := validInput()
		mutate(&input)
		_, err := svc.IssueUploadHandle(context.Background(), input)
		ke := kerrors.FromError(err)
		if ke == nil || ke.Reason != "BAD_REQUEST" {
			t.Fatalf("%s: expected BAD_REQUEST, got %v", name, err)
		}
	}
}

func TestIssueUploadHandle_SignerFailure(t *testing.T) {
	signer := &stubSigner{err: errors.New("iam unreachable")}
	svc := newUploadService(t, signer)

	_, err := svc.IssueUploadHandle(context.Background(), validInput())
	ke := kerrors.FromError(err)
	if ke == nil || ke.Reason != "GCS_SIGN" || ke.Code != 500 {
		t.Fatalf("expected GCS_SIGN 500, got %v", err)
	}
}

func TestIssueResultDownloadURL(t *testing.T) {
	signer := &stubSigner{downloadURL: "https://signed.example/get"}
	svc := newUploadService(t, signer)

	url, err := svc.IssueResultDownloadURL(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("IssueResultDownloadURL: %v", err)
	}
	if url != signer.downloadURL {
		t.Fatalf("unexpected url: %s", url)
	}
	if signer.lastBucket != "jobs-bucket" || signer.lastObject != "results/job_1/result.json" {
		t.Fatalf("signed wrong object: %s/%s", signer.lastBucket, signer.lastObject)
	}
}

func TestSourceURI(t *testing.T) {
	svc := newUploadService(t, &stubSigner{})
	uri := svc.SourceURI("upl_1")
	if uri != "gs://uploads-bucket/uploads/upl_1/source.pdf" {
		t.Fatalf("unexpected uri: %s", uri)
	}
}
