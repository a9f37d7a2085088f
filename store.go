package rowperm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tourze/row-permission/models"
)

// Store provides durable CRUD over permission records, keyed by the
// (entity class, entity id, user) triple. I/O failures surface as
// *StoreError; retrying is the caller's business.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a permission store backed by the provided database.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("row permission store: db is required")
	}
	return &Store{db: db}, nil
}

// FindPermission returns the valid record matching the triple, or nil when
// there is none.
func (s *Store) FindPermission(ctx context.Context, user Subject, entityClass, entityID string) (*models.RowPermission, error) {
	if user == nil {
		return nil, errors.New("row permission store: user is required")
	}

	var record models.RowPermission
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ? AND entity_class = ? AND entity_id = ? AND valid = ?",
			user.UserIdentifier(), entityClass, entityID, true).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find", EntityClass: entityClass, EntityID: entityID, Err: err}
	}
	return &record, nil
}

// FindByPermission returns the valid record matching the triple whose flag
// for the named kind is set. An unrecognised kind yields nil, not an error;
// callers must not rely on it for invalid-input signalling.
func (s *Store) FindByPermission(ctx context.Context, user Subject, entityClass, entityID string, kind Kind) (*models.RowPermission, error) {
	if user == nil {
		return nil, errors.New("row permission store: user is required")
	}

	column, ok := kind.Column()
	if !ok {
		return nil, nil
	}

	var record models.RowPermission
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ? AND entity_class = ? AND entity_id = ? AND valid = ?",
			user.UserIdentifier(), entityClass, entityID, true).
		Where(column+" = ?", true).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find by " + kind.String(), EntityClass: entityClass, EntityID: entityID, Err: err}
	}
	return &record, nil
}

// FindBatch returns the valid records one user holds across many instances
// of one entity class. Ordering follows the store default.
func (s *Store) FindBatch(ctx context.Context, user Subject, entityClass string, entityIDs []string) ([]models.RowPermission, error) {
	if user == nil {
		return nil, errors.New("row permission store: user is required")
	}
	if len(entityIDs) == 0 {
		return []models.RowPermission{}, nil
	}

	var records []models.RowPermission
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ? AND entity_class = ? AND entity_id IN ? AND valid = ?",
			user.UserIdentifier(), entityClass, entityIDs, true).
		Find(&records).Error
	if err != nil {
		return nil, &StoreError{Op: "find batch", EntityClass: entityClass, Err: err}
	}
	return records, nil
}

// findForGrant looks the record up regardless of the valid flag, so a grant
// can reactivate a soft-disabled record instead of violating the unique
// constraint with a second row.
func (s *Store) findForGrant(ctx context.Context, userID, entityClass, entityID string) (*models.RowPermission, error) {
	var record models.RowPermission
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ? AND entity_class = ? AND entity_id = ?", userID, entityClass, entityID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "find for grant", EntityClass: entityClass, EntityID: entityID, Err: err}
	}
	return &record, nil
}

// Save persists the record. With flush set the write runs in its own
// transaction; without it the statement executes on the ambient session so
// the caller can group several writes into one commit.
func (s *Store) Save(ctx context.Context, record *models.RowPermission, flush bool) error {
	if record == nil {
		return errors.New("row permission store: record is required")
	}

	tx := s.db.WithContext(ensureContext(ctx))
	if !flush {
		tx = tx.Session(&gorm.Session{SkipDefaultTransaction: true})
	}
	if err := tx.Save(record).Error; err != nil {
		return &StoreError{Op: "save", EntityClass: record.EntityClass, EntityID: record.EntityID, Err: err}
	}
	return nil
}

// Delete removes the record. This is the only path back to "no record";
// soft-disabling via the valid flag is the reversible alternative.
func (s *Store) Delete(ctx context.Context, record *models.RowPermission, flush bool) error {
	if record == nil {
		return errors.New("row permission store: record is required")
	}

	tx := s.db.WithContext(ensureContext(ctx))
	if !flush {
		tx = tx.Session(&gorm.Session{SkipDefaultTransaction: true})
	}
	if err := tx.Delete(record).Error; err != nil {
		return &StoreError{Op: "delete", EntityClass: record.EntityClass, EntityID: record.EntityID, Err: err}
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
