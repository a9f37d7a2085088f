package rowperm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tourze/row-permission/models"
	"github.com/tourze/row-permission/pkg/logger"
	"github.com/tourze/row-permission/pkg/metrics"
)

// Fragment combinators. The deny-exclusion fragment carries AND; the joined
// inclusion subqueries carry OR. The host query ANDs both fragments into its
// WHERE clause; the combinator describes how a fragment's content relates to
// its siblings.
const (
	CombinatorAnd = "AND"
	CombinatorOr  = "OR"
)

// Fragment is one predicate piece for splicing into a bulk query filter.
// Params may hold Subject values; ParameterizedSQL and Scope substitute the
// subject's stable identifier before binding.
type Fragment struct {
	Combinator string
	Condition  string
	Params     map[string]any
}

// ConditionBuilder translates a (entity class, alias, user, kinds) request
// into predicate fragments that push row security down into bulk queries:
// one deny-exclusion subquery plus one OR of per-kind inclusion subqueries,
// instead of a per-row check on every result.
type ConditionBuilder struct {
	log   *zap.Logger
	table string
}

// BuilderOption customises a ConditionBuilder.
type BuilderOption func(*ConditionBuilder)

// WithBuilderLogger overrides the logger used by the builder.
func WithBuilderLogger(log *zap.Logger) BuilderOption {
	return func(b *ConditionBuilder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTable overrides the permission table name referenced by the generated
// subqueries.
func WithTable(table string) BuilderOption {
	return func(b *ConditionBuilder) {
		if table != "" {
			b.table = table
		}
	}
}

// NewConditionBuilder constructs a builder over the default permission table.
func NewConditionBuilder(opts ...BuilderOption) *ConditionBuilder {
	b := &ConditionBuilder{
		log:   logger.WithModule(logger.Channel),
		table: models.RowPermission{}.TableName(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildFilter produces the fragments restricting a bulk query over
// entityClass rows (aliased as alias) to what user may reach.
//
// A nil user yields no fragments: the builder imposes no policy on whether
// "no user" means unrestricted or empty, that is the caller's call. Internal
// failures also yield no fragments; the per-row HasPermission check remains
// the fail-closed backstop for rows a broken filter would leak.
func (b *ConditionBuilder) BuildFilter(entityClass, alias string, user Subject, kinds ...Kind) (fragments []Fragment) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error("building row security filter panicked",
				zap.Any("panic", p),
				zap.String("entity_class", entityClass),
				zap.String("alias", alias))
			metrics.FilterBuilds.WithLabelValues("error").Inc()
			fragments = nil
		}
	}()

	if user == nil {
		b.log.Debug("no user supplied, skipping row security filter",
			zap.String("entity_class", entityClass))
		metrics.FilterBuilds.WithLabelValues("skipped").Inc()
		return nil
	}

	if len(kinds) == 0 {
		kinds = []Kind{KindView}
	}

	if entityClass == "" || !validAlias(alias) {
		b.log.Error("cannot build row security filter",
			zap.String("entity_class", entityClass),
			zap.String("alias", alias))
		metrics.FilterBuilds.WithLabelValues("error").Inc()
		return nil
	}

	suffix := paramSuffix(entityClass, alias, user.UserIdentifier())
	classParam := "entity_class_" + suffix
	denyParam := "user_deny_" + suffix

	// The deny exclusion always applies, whatever kinds were requested.
	fragments = []Fragment{{
		Combinator: CombinatorAnd,
		Condition: fmt.Sprintf(
			"%s.id NOT IN (SELECT deny_perm.entity_id FROM %s deny_perm"+
				" WHERE deny_perm.entity_class = @%s AND deny_perm.user_id = @%s"+
				" AND deny_perm.deny = TRUE AND deny_perm.valid = TRUE)",
			alias, b.table, classParam, denyParam),
		Params: map[string]any{
			classParam: entityClass,
			denyParam:  user,
		},
	}}

	conditions := make([]string, 0, len(kinds))
	params := map[string]any{classParam: entityClass}

	for _, kind := range kinds {
		if !kind.Actionable() {
			b.log.Warn("ignoring unknown permission kind", zap.String("kind", kind.String()))
			continue
		}
		column, _ := kind.Column()
		userParam := fmt.Sprintf("user_%s_%s", column, suffix)

		conditions = append(conditions, fmt.Sprintf(
			"%s.id IN (SELECT %s_perm.entity_id FROM %s %s_perm"+
				" WHERE %s_perm.entity_class = @%s AND %s_perm.user_id = @%s"+
				" AND %s_perm.%s = TRUE AND %s_perm.valid = TRUE)",
			alias, column, b.table, column,
			column, classParam, column, userParam,
			column, column, column))
		params[userParam] = user
	}

	if len(conditions) > 0 {
		fragments = append(fragments, Fragment{
			Combinator: CombinatorOr,
			Condition:  "(" + strings.Join(conditions, " OR ") + ")",
			Params:     params,
		})
	}

	metrics.FilterBuilds.WithLabelValues("built").Inc()
	return fragments
}

// ParameterizedSQL flattens the fragments into one SQL string plus a flat
// parameter map ready for safe binding. Subject parameters are substituted
// with the subject's stable identifier, never the value itself. A nil user
// yields an empty string and an empty map.
func (b *ConditionBuilder) ParameterizedSQL(entityClass, alias string, user Subject, kinds ...Kind) (string, map[string]any) {
	fragments := b.BuildFilter(entityClass, alias, user, kinds...)
	if len(fragments) == 0 {
		return "", map[string]any{}
	}

	parts := make([]string, 0, len(fragments))
	params := make(map[string]any)
	for _, fragment := range fragments {
		parts = append(parts, fragment.Combinator+" "+fragment.Condition)
		for name, value := range fragment.Params {
			params[name] = bindable(value)
		}
	}

	return strings.Join(parts, " "), params
}

// Scope returns a GORM scope that ANDs the row security filter into a query:
//
//	db.Model(&Document{}).Scopes(builder.Scope("models.Document", "documents", user))
func (b *ConditionBuilder) Scope(entityClass, alias string, user Subject, kinds ...Kind) func(*gorm.DB) *gorm.DB {
	fragments := b.BuildFilter(entityClass, alias, user, kinds...)
	return func(tx *gorm.DB) *gorm.DB {
		for _, fragment := range fragments {
			args := make(map[string]any, len(fragment.Params))
			for name, value := range fragment.Params {
				args[name] = bindable(value)
			}
			tx = tx.Where(fragment.Condition, args)
		}
		return tx
	}
}

func bindable(value any) any {
	if subject, ok := value.(Subject); ok {
		return subject.UserIdentifier()
	}
	return value
}

// paramSuffix disambiguates parameter names so filters for different
// aliases or users can coexist in one composite query.
func paramSuffix(entityClass, alias, userID string) string {
	sum := md5.Sum([]byte(entityClass + alias + userID))
	return hex.EncodeToString(sum[:])
}

func validAlias(alias string) bool {
	if alias == "" {
		return false
	}
	for i, r := range alias {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
