package store

import (
	"context"
	"errors"

	"github.com/nhle/mailterm/internal/model"
)

// ErrNoSession is returned by LoadUser when nobody is signed in.
var ErrNoSession = errors.New("no session")

// Store defines the local persistence interface. The signed-in user is the
// only record the client keeps between runs.
type Store interface {
	SaveUser(ctx context.Context, u model.User) error
	LoadUser(ctx context.Context) (*model.User, error)
	ClearUser(ctx context.Context) error
	Close() error
}
