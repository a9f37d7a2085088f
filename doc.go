// Package rowperm supplements role-based access control with row-level
// security: per-(user, entity instance) permission records gating view,
// edit and unlink access, with a deny flag that overrides every grant.
//
// Single-object checks go through Resolver.HasPermission, which consults an
// optional look-aside cache and fails closed on any internal error. Bulk
// queries stay efficient through ConditionBuilder, which emits predicate
// fragments (a deny-exclusion subquery plus OR-joined inclusion subqueries)
// for the host data layer to AND into its WHERE clause, so row security
// costs a constant number of subqueries per listing instead of a per-row
// check.
package rowperm
