// Copyright 2018 Bull S.A.S. Atos Technologies - Bull, Rue Jean Jaures, B.P.68, 78340, Les Clayes-sous-Bois, France.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry holds the scheduler backends available to an application.
//
// There is no global registry: the application builds one and registers its
// backends explicitly.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/prov"
)

// BuiltinOrigin is the origin of backends shipped with clusterjob
const BuiltinOrigin = "builtin"

// Registry holds references to backends by name
type Registry interface {
	// Register adds a backend. Origin is the origin of the backend (builtin
	// for builtin backends or the dialect file path for user defined ones)
	//
	// Names are case insensitive, registering twice the same name is an error.
	Register(backend prov.Backend, origin string) error
	// Get returns the backend registered with the given name
	//
	// If no backend matches an error is returned
	Get(name string) (prov.Backend, error)
	// List returns registered backends sorted by name
	List() []BackendMatch
}

// BackendMatch represents a backend and its origin
type BackendMatch struct {
	Name    string       `json:"name"`
	Backend prov.Backend `json:"-"`
	Origin  string       `json:"origin"`
}

// New returns an empty Registry
func New() Registry {
	return &defaultRegistry{backends: make(map[string]BackendMatch)}
}

type defaultRegistry struct {
	backends map[string]BackendMatch
	lock     sync.RWMutex
}

func (r *defaultRegistry) Register(backend prov.Backend, origin string) error {
	if backend == nil || backend.Name() == "" {
		return errors.New("can't register a backend without name")
	}
	key := strings.ToLower(backend.Name())
	r.lock.Lock()
	defer r.lock.Unlock()
	if existing, ok := r.backends[key]; ok {
		return errors.Errorf("backend %q from %q is already registered from %q", backend.Name(), origin, existing.Origin)
	}
	r.backends[key] = BackendMatch{Name: backend.Name(), Backend: backend, Origin: origin}
	return nil
}

func (r *defaultRegistry) Get(name string) (prov.Backend, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	m, ok := r.backends[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown backend %q", name)
	}
	return m.Backend, nil
}

func (r *defaultRegistry) List() []BackendMatch {
	r.lock.RLock()
	defer r.lock.RUnlock()
	result := make([]BackendMatch, 0, len(r.backends))
	for _, m := range r.backends {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
