package rowperm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tourze/row-permission/cache"
	"github.com/tourze/row-permission/models"
	"github.com/tourze/row-permission/pkg/logger"
	"github.com/tourze/row-permission/pkg/metrics"
)

// DefaultCacheTTL bounds how long a cached permission check may outlive the
// record it was computed from.
const DefaultCacheTTL = time.Hour

// Resolver is the single source of truth for "may user U do action A on
// entity E". Point checks fail closed, grants mutate the backing record
// with tri-state flag merging, and bulk restrictions delegate to the
// condition builder.
type Resolver struct {
	store    *Store
	cache    cache.Store
	cacheTTL time.Duration
	log      *zap.Logger
	builder  *ConditionBuilder
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithCache attaches a look-aside cache for point permission checks.
// Caching is best-effort: every cache failure degrades to a store lookup.
func WithCache(store cache.Store) ResolverOption {
	return func(r *Resolver) {
		r.cache = store
	}
}

// WithCacheTTL overrides the cache entry lifetime.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithLogger overrides the logger used by the resolver and its builder.
func WithLogger(log *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithConditionBuilder overrides the builder used for query filters.
func WithConditionBuilder(builder *ConditionBuilder) ResolverOption {
	return func(r *Resolver) {
		if builder != nil {
			r.builder = builder
		}
	}
}

// NewResolver constructs a resolver over the given store.
func NewResolver(store *Store, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("row permission resolver: store is required")
	}

	r := &Resolver{
		store:    store,
		cacheTTL: DefaultCacheTTL,
		log:      logger.WithModule(logger.Channel),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.builder == nil {
		r.builder = NewConditionBuilder(WithBuilderLogger(r.log))
	}
	return r, nil
}

// HasPermission reports whether user may perform the action named by kind on
// entity. It never returns an error: a nil user, an entity without a usable
// id, and every internal failure all answer false. Ambiguous state is never
// treated as allowed.
func (r *Resolver) HasPermission(ctx context.Context, user Subject, entity any, kind Kind) (allowed bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("permission check panicked",
				zap.Any("panic", p),
				zap.String("kind", kind.String()))
			metrics.PermissionChecks.WithLabelValues(kind.String(), "error").Inc()
			allowed = false
		}
	}()

	if user == nil {
		metrics.PermissionChecks.WithLabelValues(kind.String(), "deny").Inc()
		return false
	}

	identifiable, ok := entity.(Identifiable)
	if !ok {
		r.log.Warn("entity does not expose an id, denying",
			zap.String("entity_class", entityClassOf(entity)))
		metrics.PermissionChecks.WithLabelValues(kind.String(), "deny").Inc()
		return false
	}

	entityID := identifiable.EntityID()
	if entityID == "" {
		metrics.PermissionChecks.WithLabelValues(kind.String(), "deny").Inc()
		return false
	}

	entityClass := entityClassOf(entity)
	key := cacheKey(user.UserIdentifier(), entityClass, entityID, kind)

	if r.cache != nil {
		value, hit, err := r.cache.Get(ensureContext(ctx), key)
		switch {
		case err != nil:
			r.log.Warn("permission cache read failed", zap.String("key", key), zap.Error(err))
			metrics.CacheEvents.WithLabelValues("error").Inc()
		case hit:
			metrics.CacheEvents.WithLabelValues("hit").Inc()
			result := decodeCachedBool(value)
			metrics.PermissionChecks.WithLabelValues(kind.String(), checkResult(result)).Inc()
			return result
		default:
			metrics.CacheEvents.WithLabelValues("miss").Inc()
		}
	}

	// Deny is authoritative and independent of the requested kind.
	denyRecord, err := r.store.FindByPermission(ctx, user, entityClass, entityID, KindDeny)
	if err != nil {
		r.logCheckError(err, entityClass, entityID, kind)
		return false
	}
	if denyRecord != nil {
		r.cacheResult(ctx, key, false)
		metrics.PermissionChecks.WithLabelValues(kind.String(), "deny").Inc()
		return false
	}

	permRecord, err := r.store.FindByPermission(ctx, user, entityClass, entityID, kind)
	if err != nil {
		r.logCheckError(err, entityClass, entityID, kind)
		return false
	}

	result := permRecord != nil
	r.cacheResult(ctx, key, result)
	metrics.PermissionChecks.WithLabelValues(kind.String(), checkResult(result)).Inc()
	return result
}

// Grant creates or updates the permission record for the request's
// (user, entity) pair. Only the flags the request explicitly sets are
// touched, and the record is always (re)activated. This is the one path
// that surfaces errors instead of failing closed.
func (r *Resolver) Grant(ctx context.Context, request GrantRequest) (*models.RowPermission, error) {
	if request.User == nil {
		metrics.Grants.WithLabelValues("failure").Inc()
		return nil, invalidEntity(ErrMissingUser)
	}

	identifiable, ok := request.Entity.(Identifiable)
	if !ok {
		metrics.Grants.WithLabelValues("failure").Inc()
		return nil, invalidEntity(ErrNotIdentifiable)
	}

	entityID := identifiable.EntityID()
	if entityID == "" {
		metrics.Grants.WithLabelValues("failure").Inc()
		return nil, invalidEntity(ErrMissingEntityID)
	}

	entityClass := entityClassOf(request.Entity)
	userID := request.User.UserIdentifier()

	// The lookup ignores the valid flag: a grant reactivates a soft-disabled
	// record rather than colliding with it on the unique triple.
	record, err := r.store.findForGrant(ctx, userID, entityClass, entityID)
	if err != nil {
		metrics.Grants.WithLabelValues("failure").Inc()
		return nil, err
	}
	if record == nil {
		record = &models.RowPermission{
			EntityClass: entityClass,
			EntityID:    entityID,
			UserID:      userID,
		}
	}

	if request.Deny != nil {
		record.Deny = *request.Deny
	}
	if request.View != nil {
		record.View = *request.View
	}
	if request.Edit != nil {
		record.Edit = *request.Edit
	}
	if request.Unlink != nil {
		record.Unlink = *request.Unlink
	}
	if request.Remark != nil {
		record.Remark = *request.Remark
	}
	if request.GrantedBy != nil {
		record.GrantedBy = request.GrantedBy
	}
	if request.Metadata != nil {
		record.Metadata = request.Metadata
	}
	record.Valid = true

	if err := r.store.Save(ctx, record, true); err != nil {
		r.log.Error("saving permission record failed",
			zap.String("entity_class", entityClass),
			zap.String("entity_id", entityID),
			zap.Error(err))
		metrics.Grants.WithLabelValues("failure").Inc()
		return nil, err
	}

	r.invalidateCache(ctx, userID, entityClass, entityID)
	metrics.Grants.WithLabelValues("success").Inc()
	return record, nil
}

// GrantFlags grants using the external flag vocabulary: only the kinds
// present in the map are applied.
func (r *Resolver) GrantFlags(ctx context.Context, user Subject, entity any, flags map[Kind]bool) (*models.RowPermission, error) {
	return r.Grant(ctx, GrantFromFlags(user, entity, flags))
}

// GrantBatch applies the same flags to each entity independently. There is
// no transactional envelope: the first failure aborts the loop and the
// records granted so far are returned alongside the error.
func (r *Resolver) GrantBatch(ctx context.Context, user Subject, entities []any, flags map[Kind]bool) ([]*models.RowPermission, error) {
	results := make([]*models.RowPermission, 0, len(entities))

	for _, entity := range entities {
		record, err := r.GrantFlags(ctx, user, entity, flags)
		if err != nil {
			return results, err
		}
		results = append(results, record)
	}

	return results, nil
}

// QueryFilter returns predicate fragments restricting a bulk query over
// entityClass rows to those user may reach. Kinds defaults to view.
func (r *Resolver) QueryFilter(entityClass, alias string, user Subject, kinds ...Kind) []Fragment {
	if len(kinds) == 0 {
		kinds = []Kind{KindView}
	}
	return r.builder.BuildFilter(entityClass, alias, user, kinds...)
}

// ConditionBuilder exposes the underlying builder for callers needing the
// parameterized SQL form or a GORM scope.
func (r *Resolver) ConditionBuilder() *ConditionBuilder {
	return r.builder
}

func (r *Resolver) logCheckError(err error, entityClass, entityID string, kind Kind) {
	r.log.Error("permission check failed, denying",
		zap.String("entity_class", entityClass),
		zap.String("entity_id", entityID),
		zap.String("kind", kind.String()),
		zap.Error(err))
	metrics.PermissionChecks.WithLabelValues(kind.String(), "error").Inc()
}

func (r *Resolver) cacheResult(ctx context.Context, key string, result bool) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ensureContext(ctx), key, encodeCachedBool(result), r.cacheTTL); err != nil {
		r.log.Warn("caching permission result failed", zap.String("key", key), zap.Error(err))
		metrics.CacheEvents.WithLabelValues("error").Inc()
	}
}

// invalidateCache drops the cached answers for every kind of this
// (user, entity) pair, deny included, so the next check hits the store.
func (r *Resolver) invalidateCache(ctx context.Context, userID, entityClass, entityID string) {
	if r.cache == nil {
		return
	}

	keys := make([]string, 0, len(Kinds()))
	for _, kind := range Kinds() {
		keys = append(keys, cacheKey(userID, entityClass, entityID, kind))
	}

	if err := r.cache.Delete(ensureContext(ctx), keys...); err != nil {
		r.log.Warn("clearing permission cache failed",
			zap.String("entity_class", entityClass),
			zap.String("entity_id", entityID),
			zap.Error(err))
		metrics.CacheEvents.WithLabelValues("error").Inc()
	}
}

func cacheKey(userID, entityClass, entityID string, kind Kind) string {
	return fmt.Sprintf("row_perm_%s_%s_%s_%s", userID, entityClass, entityID, kind)
}

func encodeCachedBool(value bool) []byte {
	if value {
		return []byte("1")
	}
	return []byte("0")
}

func decodeCachedBool(value []byte) bool {
	return len(value) == 1 && value[0] == '1'
}

func checkResult(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
