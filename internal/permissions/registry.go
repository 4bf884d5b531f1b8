package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition describes one transition exposed by a resource.
type Definition struct {
	Resource    ResourceType `json:"resource"`
	Action      Action       `json:"action"`
	Description string       `json:"description"`
}

// ID returns the catalog key of the definition.
func (d *Definition) ID() string {
	return string(d.Resource) + "." + string(d.Action)
}

type catalogRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

var globalCatalog = &catalogRegistry{
	definitions: make(map[string]*Definition),
}

var (
	errNilDefinition = errors.New("permission: nil definition")
	errEmptyResource = errors.New("permission: resource is required")
	errEmptyAction   = errors.New("permission: action is required")
	errDuplicateID   = errors.New("permission: already registered")
)

// Register adds a transition definition to the catalog.
func Register(def *Definition) error {
	if def == nil {
		return errNilDefinition
	}

	cp := *def
	cp.Resource = ResourceType(strings.TrimSpace(string(cp.Resource)))
	cp.Action = Action(strings.TrimSpace(string(cp.Action)))
	if cp.Resource == "" {
		return errEmptyResource
	}
	if cp.Action == "" {
		return errEmptyAction
	}

	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()

	id := cp.ID()
	if _, exists := globalCatalog.definitions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}
	globalCatalog.definitions[id] = &cp
	return nil
}

// Lookup returns a copy of the definition for resource and action.
func Lookup(resource ResourceType, action Action) (*Definition, bool) {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	def, ok := globalCatalog.definitions[string(resource)+"."+string(action)]
	if !ok {
		return nil, false
	}
	cp := *def
	return &cp, true
}

// Catalog returns copies of every registered definition ordered by resource then action.
func Catalog() []*Definition {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	out := make([]*Definition, 0, len(globalCatalog.definitions))
	for _, def := range globalCatalog.definitions {
		cp := *def
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// ForResource returns the definitions registered for resource.
func ForResource(resource ResourceType) []*Definition {
	var out []*Definition
	for _, def := range Catalog() {
		if def.Resource == resource {
			out = append(out, def)
		}
	}
	return out
}

// reset clears registry entries. Intended for testing only.
func reset() {
	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()
	globalCatalog.definitions = make(map[string]*Definition)
}
