package services

import (
	"errors"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/repositories"
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func newSession(id string) Session {
	return domain.NewSession(id)
}
