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

package sizeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiplyMemory(t *testing.T) {
	t.Parallel()
	var testData = []struct {
		test          string
		inputSize     string
		factor        int
		expectedSize  string
		expectedError bool
	}{
		{"gigabytes", "4G", 24, "96G", false},
		{"gigabytesWithB", "4GB", 2, "8G", false},
		{"lowercase", "2g", 3, "6G", false},
		{"megabytesNoUnit", "2000", 2, "4000M", false},
		{"megabytesToGigabytes", "512M", 2, "1G", false},
		{"fractional", "1.5G", 2, "3G", false},
		{"kilobytes", "3K", 1, "3K", false},
		{"terabytes", "1T", 4, "4T", false},
		{"zeroFactor", "4G", 0, "", true},
		{"empty", "", 2, "", true},
		{"garbage", "1 deca", 2, "", true},
	}
	for _, tt := range testData {
		t.Run(tt.test, func(t *testing.T) {
			s, err := MultiplyMemory(tt.inputSize, tt.factor)
			if tt.expectedError {
				assert.Error(t, err, "Expected an error")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedSize, s)
		})
	}
}

func TestParseMemory(t *testing.T) {
	t.Parallel()
	b, err := ParseMemory("1G")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1<<30), b)
	b, err = ParseMemory("100")
	assert.NoError(t, err)
	assert.Equal(t, uint64(100<<20), b)
}
