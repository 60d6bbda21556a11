package deckjobs

import "testing"

func TestDecode_ValidMessage(t *testing.T) {
	payload := []byte(`{"jobId":"job_1","uploadId":"upl_1","gcsPath":"gs://bucket/uploads/upl_1/source.pdf","options":{"maxSlides":5}}`)

	msg, err := newDecoder().Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.JobID != "job_1" || msg.UploadID != "upl_1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.GCSPath != "gs://bucket/uploads/upl_1/source.pdf" {
		t.Fatalf("unexpected gcsPath: %s", msg.GCSPath)
	}
	if msg.Options.MaxSlides == nil || *msg.Options.MaxSlides != 5 {
		t.Fatalf("options not decoded: %+v", msg.Options)
	}
}

func TestDecode_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"malformed json", []byte(`{"jobId":`)},
		{"missing jobId", []byte(`{"gcsPath":"gs://bucket/x.pdf"}`)},
		{"missing gcsPath", []byte(`{"jobId":"job_1"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newDecoder().Decode(tc.payload); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}
