package memory

import (
	"time"

	"github.com/m-mizutani/kioku/pkg/repository"
)

// DefaultEventLimit caps event queries that do not specify a limit.
const DefaultEventLimit = 50

// UseCase provides conversation memory operations
type UseCase struct {
	repo repository.Repository
	now  func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock sets the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new memory UseCase instance
func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
