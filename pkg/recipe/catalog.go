// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recipe

import (
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// Catalog holds loaded recipes keyed by reference. It is safe for concurrent use.
type Catalog struct {
	recipes map[Reference]Recipe
	mu      sync.RWMutex
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		recipes: make(map[Reference]Recipe),
	}
}

// Register validates r's metadata and adds it. A reference may be registered once.
func (c *Catalog) Register(r Recipe) error {
	meta := r.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}
	ref := meta.Reference()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.recipes[ref]; exists {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("recipe %s already registered", ref))
	}
	c.recipes[ref] = r
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(r Recipe) {
	if err := c.Register(r); err != nil {
		panic(err)
	}
}

// Get returns the recipe for ref.
func (c *Catalog) Get(ref Reference) (Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.recipes[ref]
	if !ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
			fmt.Sprintf("recipe %s not found", ref),
			map[string]any{apperrors.ContextNode: ref.String()})
	}
	return r, nil
}

// List returns all references sorted by name then version.
func (c *Catalog) List() []Reference {
	c.mu.RLock()
	defer c.mu.RUnlock()

	refs := make([]Reference, 0, len(c.recipes))
	for ref := range c.recipes {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Version < refs[j].Version
	})
	return refs
}

// Versions returns the registered versions of name, sorted.
func (c *Catalog) Versions(name string) []string {
	var out []string
	for _, ref := range c.List() {
		if ref.Name == name {
			out = append(out, ref.Version)
		}
	}
	return out
}

// Unregister removes ref.
func (c *Catalog) Unregister(ref Reference) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.recipes[ref]; !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("recipe %s not registered", ref))
	}
	delete(c.recipes, ref)
	return nil
}

// Count returns the number of registered recipes.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recipes)
}
