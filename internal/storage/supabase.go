package storage

import (
	"bytes"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// Config holds the Supabase project credentials and target bucket for call
// recordings.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Supabase uploads recording files into a storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

// New creates the storage client. It returns an error instead of a client
// when the project credentials are unusable.
func New(cfg Config) (*Supabase, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores data under key in the configured bucket.
func (s *Supabase) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("upload to supabase: %w", err)
	}
	return nil
}
