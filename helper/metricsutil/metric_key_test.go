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

package metricsutil

import (
	"reflect"
	"testing"
)

func TestKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		parts []string
		want  []string
	}{
		{"Plain", []string{"backend", "accre", "submit"}, []string{"backend", "accre", "submit"}},
		{"Separators", []string{"backend", "my.cluster/a_b", "x|y:z"}, []string{"backend", "my-cluster-a-b", "x-y-z"}},
		{"Spaces", []string{"scontrol hold"}, []string{"scontrol-hold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.parts...); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Key() = %v, want %v", got, tt.want)
			}
		})
	}
}
