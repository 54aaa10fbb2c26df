package postgres

import (
	"context"

	"github.com/google/uuid"
)

type ProofRepo struct {
	store *Store
}

func (r *ProofRepo) Save(ctx context.Context, id uuid.UUID, contentType string, data []byte) error {
	const op = "postgres.ProofRepo.Save"

	db := r.store.handle(ctx)

	if _, err := db.Exec(ctx,
		`INSERT INTO payment_proofs (id, content_type, size_bytes, data)
		 VALUES ($1, $2, $3, $4)`,
		id, contentType, len(data), data,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get returns the stored content type and bytes of a proof, or repository.ErrNotFound.
func (r *ProofRepo) Get(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	const op = "postgres.ProofRepo.Get"

	db := r.store.handle(ctx)

	var contentType string
	var data []byte
	if err := db.QueryRow(ctx,
		`SELECT content_type, data FROM payment_proofs WHERE id = $1`,
		id,
	).Scan(&contentType, &data); err != nil {
		return "", nil, wrapDBErr(op, err)
	}

	return contentType, data, nil
}
