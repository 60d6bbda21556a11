package deckjobs_test

import (
	"context"
	"io"
	"testing"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/pubsub"
	"github.com/bionicotaku/slidesmith/internal/tasks/deckjobs"
)

type stubSubscriber struct {
	messages []pubsub.Message
	results  []error
}

func (s *stubSubscriber) Receive(ctx context.Context, handler func(ctx context.Context, msg pubsub.Message) error) error {
	for _, msg := range s.messages {
		s.results = append(s.results, handler(ctx, msg))
	}
	return nil
}

func TestRunner_DropsUndecodableMessages(t *testing.T) {
	jobs := &stubJobs{}
	sub := &stubSubscriber{messages: []pubsub.Message{
		{Data: []byte("not json")},
		{Data: nil},
	}}
	handler := newHandler(jobs, &stubStore{}, &stubRenderer{}, &stubGenerator{deck: validDeck()}, &stubSigner{})

	runner, err := deckjobs.NewRunner(sub, handler, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, res := range sub.results {
		if res != nil {
			t.Fatalf("undecodable message %d must ack, got %v", i, res)
		}
	}
	if len(jobs.processed) != 0 {
		t.Fatalf("undecodable messages must not reach the pipeline")
	}
}

func TestRunner_ForwardsDecodedMessages(t *testing.T) {
	jobs := &stubJobs{}
	sub := &stubSubscriber{messages: []pubsub.Message{
		{Data: []byte(`{"jobId":"job_9","uploadId":"upl_9","gcsPath":"gs://bucket/uploads/upl_9/source.pdf"}`)},
	}}
	handler := newHandler(jobs, &stubStore{data: []byte("x")}, &stubRenderer{}, &stubGenerator{deck: validDeck()}, &stubSigner{})

	runner, err := deckjobs.NewRunner(sub, handler, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(jobs.processed) != 1 || jobs.processed[0] != "job_9" {
		t.Fatalf("expected job_9 processed, got %v", jobs.processed)
	}

	if _, err := deckjobs.NewRunner(nil, handler, log.NewStdLogger(io.Discard)); err == nil {
		t.Fatalf("nil subscriber must be rejected")
	}
}
