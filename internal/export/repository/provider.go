package repository

import (
	"github.com/robinstudios/dot/internal/db"
)

// Provide returns the SQL repository when a pool is configured and the
// in-memory repository otherwise.
func Provide(pool *db.Pool) (Repository, func() error, error) {
	if pool == nil {
		repo := NewMemoryRepository()
		return repo, repo.Close, nil
	}
	repo, err := NewSQLRepository(pool)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}
