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

package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/executil"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/prov/sge"
	"github.com/ystia/clusterjob/prov/slurm"
)

func newBackend(t *testing.T, d *prov.Dialect) prov.Backend {
	var b prov.Backend
	var err error
	if d.Name == "sge" {
		b, err = sge.New(d, &executil.MockRunner{}, config.NewDefault())
	} else {
		b, err = slurm.New(d, &executil.MockRunner{}, config.NewDefault())
	}
	require.NoError(t, err)
	return b
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := New()
	accre := newBackend(t, slurm.ACCRE())
	require.NoError(t, reg.Register(accre, BuiltinOrigin))
	require.NoError(t, reg.Register(newBackend(t, sge.Generic()), "/etc/clusterjob/dialects.yaml"))

	b, err := reg.Get("accre")
	require.NoError(t, err)
	assert.Equal(t, accre, b)

	_, err = reg.Get("unknown")
	assert.Error(t, err)

	err = reg.Register(newBackend(t, slurm.ACCRE()), "other")
	assert.Error(t, err, "duplicate names are not allowed")

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, accre.Name(), list[0].Name)
	assert.Equal(t, BuiltinOrigin, list[0].Origin)
	assert.Equal(t, "sge", list[1].Name)
	assert.Equal(t, "/etc/clusterjob/dialects.yaml", list[1].Origin)
}

func TestRegistryRejectsNil(t *testing.T) {
	t.Parallel()
	assert.Error(t, New().Register(nil, BuiltinOrigin))
}

func TestRegistriesAreIndependent(t *testing.T) {
	t.Parallel()
	r1 := New()
	r2 := New()
	require.NoError(t, r1.Register(newBackend(t, slurm.Generic()), BuiltinOrigin))
	_, err := r2.Get("slurm")
	assert.Error(t, err)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()
	reg := New()
	require.NoError(t, reg.Register(newBackend(t, slurm.Expanse()), BuiltinOrigin))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Get(slurm.Expanse().Name)
			assert.NoError(t, err)
			assert.Len(t, reg.List(), 1)
		}()
	}
	wg.Wait()
}
