// Package policy implements the role-based table allowlist consulted before
// any SQL reaches the data store. The mapping is flat: role -> allowed table
// names, with "*" meaning every table.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/queryguard/queryguard/internal/guard"
)

// Wildcard in a role's allowlist grants access to every table.
const Wildcard = "*"

// ErrUnknownRole marks a role that is absent from the policy map. This is a
// distinct outcome from a deny: the caller sent an identity the policy has
// never heard of.
var ErrUnknownRole = errors.New("unknown role")

// DeniedError names the role and table that caused a rejection so the caller
// can self-correct.
type DeniedError struct {
	Role  string
	Table string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("role %q is not allowed to access table %q", e.Role, e.Table)
}

// Policy maps roles to their allowed table names.
type Policy struct {
	roles map[string][]string
}

// New builds a Policy from a role -> tables map. Table names are lowercased;
// roles are kept verbatim.
func New(roles map[string][]string) *Policy {
	normalized := make(map[string][]string, len(roles))
	for role, tables := range roles {
		cleaned := make([]string, 0, len(tables))
		for _, table := range tables {
			table = strings.TrimSpace(table)
			if table == "" {
				continue
			}
			if table == Wildcard {
				cleaned = append(cleaned, Wildcard)
				continue
			}
			cleaned = append(cleaned, strings.ToLower(table))
		}
		sort.Strings(cleaned)
		normalized[strings.TrimSpace(role)] = cleaned
	}
	return &Policy{roles: normalized}
}

// Parse builds a Policy from a spec string of the form
// "analyst:sales|products,admin:*". An empty spec yields an empty policy.
func Parse(spec string) (*Policy, error) {
	roles := map[string][]string{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return New(roles), nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid policy entry %q: expected role:table|table", entry)
		}
		role := strings.TrimSpace(parts[0])
		if role == "" {
			return nil, fmt.Errorf("invalid policy entry %q: empty role", entry)
		}
		tables := strings.Split(parts[1], "|")
		if len(tables) == 0 {
			return nil, fmt.Errorf("invalid policy entry %q: at least one table is required", entry)
		}
		roles[role] = append(roles[role], tables...)
	}
	return New(roles), nil
}

// Default returns the built-in policy used when no spec is configured.
func Default() *Policy {
	return New(map[string][]string{
		"admin":   {Wildcard},
		"analyst": {"sales", "products", "orders", "customers"},
		"hr":      {"employees", "departments"},
		"guest":   {"products"},
	})
}

// Roles returns the sorted role names known to the policy.
func (p *Policy) Roles() []string {
	names := make([]string, 0, len(p.roles))
	for role := range p.roles {
		names = append(names, role)
	}
	sort.Strings(names)
	return names
}

// Check decides whether a query may run under the given role.
//
// An empty role allows: without an identity there is nothing to enforce, and
// callers are expected to require a role upstream. This permissive fallback is
// kept deliberately; tightening it changes access semantics for anonymous
// deployments.
//
// A role the policy has never heard of returns ErrUnknownRole, never a silent
// allow or deny-all. Otherwise every table name extracted from the query must
// appear in the role's allowlist, unless the allowlist carries the wildcard.
func (p *Policy) Check(sql, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil
	}

	allowed, ok := p.roles[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, table := range allowed {
		if table == Wildcard {
			return nil
		}
		allowedSet[table] = struct{}{}
	}

	for _, table := range guard.ExtractTableNames(sql) {
		if _, ok := allowedSet[table]; !ok {
			return &DeniedError{Role: role, Table: table}
		}
	}
	return nil
}
