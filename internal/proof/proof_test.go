package proof

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/repository"
)

// pngHeader is the 8-byte PNG signature followed by the start of an IHDR chunk.
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
}

type memRepo struct {
	blobs map[uuid.UUID][]byte
	types map[uuid.UUID]string
}

func newMemRepo() *memRepo {
	return &memRepo{blobs: map[uuid.UUID][]byte{}, types: map[uuid.UUID]string{}}
}

func (r *memRepo) Save(_ context.Context, id uuid.UUID, ct string, data []byte) error {
	r.blobs[id] = data
	r.types[id] = ct
	return nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (string, []byte, error) {
	b, ok := r.blobs[id]
	if !ok {
		return "", nil, repository.ErrNotFound
	}
	return r.types[id], b, nil
}

func TestSave_StoresImageAndReturnsURL(t *testing.T) {
	repo := newMemRepo()
	s := New(repo, Config{BaseURL: "https://tix.example.com/"})
	ctx := context.Background()

	url, err := s.Save(ctx, pngHeader)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://tix.example.com/proofs/"))

	id, err := uuid.Parse(strings.TrimPrefix(url, "https://tix.example.com/proofs/"))
	require.NoError(t, err)

	ct, data, err := s.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, pngHeader, data)
}

func TestSave_Rejects(t *testing.T) {
	s := New(newMemRepo(), Config{BaseURL: "https://tix.example.com", MaxBytes: 32})

	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"empty", nil, ErrEmpty},
		{"too large", make([]byte, 33), ErrTooLarge},
		{"plain text", []byte("definitely not a picture"), ErrNotImage},
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(context.Background(), tt.payload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpen_NotFound(t *testing.T) {
	s := New(newMemRepo(), Config{})

	_, _, err := s.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
