package rowperm

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tourze/row-permission/database/testutil"
)

type testUser struct {
	id string
}

func (u testUser) UserIdentifier() string { return u.id }

// document is a protected entity deriving its class name from its type.
type document struct {
	id string
}

func (d *document) EntityID() string { return d.id }

// invoice overrides its canonical class name explicitly.
type invoice struct {
	id string
}

func (i *invoice) EntityID() string    { return i.id }
func (i *invoice) EntityClass() string { return "billing.Invoice" }

// opaque exposes no identity at all.
type opaque struct{}

func openStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, db
}

// failingCache errors on every operation; the resolver must degrade to
// store lookups.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}
func (failingCache) Delete(context.Context, ...string) error { return errCacheDown }
