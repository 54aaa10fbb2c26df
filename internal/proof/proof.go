// Package proof stores payment-proof images and hands out stable URLs for them. The
// booking engine keeps the URL verbatim and never looks at the bytes.
package proof

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/kirinyoku/tix-booking/internal/repository"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrEmpty    = errors.New("empty payload")
	ErrTooLarge = errors.New("payload too large")
	ErrNotImage = errors.New("payload is not an image")
	ErrNotFound = errors.New("proof not found")
)

// Repo persists the raw bytes; *postgres.ProofRepo satisfies it.
type Repo interface {
	Save(ctx context.Context, id uuid.UUID, contentType string, data []byte) error
	Get(ctx context.Context, id uuid.UUID) (string, []byte, error)
}

type Config struct {
	// BaseURL is the public origin the proof URLs are built on, without trailing slash.
	BaseURL  string
	MaxBytes int64
}

type Store struct {
	repo     Repo
	baseURL  string
	maxBytes int64
}

func New(repo Repo, cfg Config) *Store {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Store{
		repo:     repo,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes: cfg.MaxBytes,
	}
}

// MaxBytes is the largest payload Save accepts.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save stores an image payload and returns the URL it is served from.
//
// Returns:
//   - string: the stable URL of the stored image.
//   - error: proof.ErrEmpty, proof.ErrTooLarge or proof.ErrNotImage for rejected payloads.
func (s *Store) Save(ctx context.Context, payload []byte) (string, error) {
	const op = "proof.Store.Save"

	if len(payload) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmpty)
	}

	if int64(len(payload)) > s.maxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	mt := mimetype.Detect(payload)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s: %w: detected %s", op, ErrNotImage, mt.String())
	}

	id := uuid.New()
	if err := s.repo.Save(ctx, id, mt.String(), payload); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.URL(id), nil
}

// Open returns the content type and bytes of a stored proof.
//
// Returns:
//   - error: proof.ErrNotFound if no proof has that id.
func (s *Store) Open(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	const op = "proof.Store.Open"

	ct, data, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return ct, data, nil
}

func (s *Store) URL(id uuid.UUID) string {
	return s.baseURL + "/proofs/" + id.String()
}
