package permissions

import (
	"sort"
	"strings"

	"github.com/charlesng35/tradeflow/internal/models"
)

// Grant is the allowed set of one role: either every key or a finite set.
type Grant[K ~string] struct {
	all  bool
	keys map[K]struct{}
}

// All returns the wildcard grant.
func All[K ~string]() Grant[K] {
	return Grant[K]{all: true}
}

// Only returns a grant limited to the provided keys. No keys means no access.
func Only[K ~string](keys ...K) Grant[K] {
	set := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return Grant[K]{keys: set}
}

// IsAll reports whether the grant is the wildcard.
func (g Grant[K]) IsAll() bool {
	return g.all
}

// Contains reports whether key is granted. The empty key is only granted by the wildcard.
func (g Grant[K]) Contains(key K) bool {
	if g.all {
		return true
	}
	if strings.TrimSpace(string(key)) == "" {
		return false
	}
	_, ok := g.keys[key]
	return ok
}

// Keys returns the explicit keys in sorted order. The wildcard has none.
func (g Grant[K]) Keys() []K {
	out := make([]K, 0, len(g.keys))
	for key := range g.keys {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table maps roles to grants. Tables are built once and never modified.
type Table[K ~string] struct {
	grants map[models.Role]Grant[K]
}

// NewTable copies the provided grants into an immutable table.
func NewTable[K ~string](grants map[models.Role]Grant[K]) Table[K] {
	copied := make(map[models.Role]Grant[K], len(grants))
	for role, grant := range grants {
		copied[role] = grant
	}
	return Table[K]{grants: copied}
}

// Allowed reports whether role may use key. Unknown or missing roles are denied.
func (t Table[K]) Allowed(role models.Role, key K) bool {
	if role == "" {
		return false
	}
	grant, ok := t.grants[role]
	if !ok {
		return false
	}
	return grant.Contains(key)
}

// Grant returns the grant of role and whether the role has an entry.
func (t Table[K]) Grant(role models.Role) (Grant[K], bool) {
	grant, ok := t.grants[role]
	return grant, ok
}
