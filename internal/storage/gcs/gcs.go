// Package gcs stores the ledger slot as a Cloud Storage object.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

type Slot struct {
	client *storage.Client
	bucket string
	object string
}

// New uses application default credentials.
func New(ctx context.Context, bucket, object string) (*Slot, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Slot{client: client, bucket: bucket, object: object}, nil
}

func (s *Slot) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

func (s *Slot) Close() error {
	return s.client.Close()
}

func (s *Slot) Read(ctx context.Context) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.URI(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URI(), err)
	}
	return data, nil
}

func (s *Slot) Write(ctx context.Context, data []byte) error {
	wc := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	wc.ContentType = "application/json"

	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write %s: %w", s.URI(), err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close %s writer: %w", s.URI(), err)
	}
	return nil
}
