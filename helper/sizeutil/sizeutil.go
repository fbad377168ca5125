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
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var memoryUnits = []struct {
	suffix string
	size   uint64
}{
	{"T", humanize.TiByte},
	{"G", humanize.GiByte},
	{"M", humanize.MiByte},
	{"K", humanize.KiByte},
}

// ParseMemory converts a scheduler memory request into bytes.
//
// Schedulers use binary units with a single letter suffix (K, M, G or T),
// a value without unit is expressed in megabytes.
func ParseMemory(size string) (uint64, error) {
	s := strings.TrimSpace(size)
	if s == "" {
		return 0, errors.New("empty memory size")
	}
	if m, err := strconv.ParseUint(s, 10, 64); err == nil {
		return m * humanize.MiByte, nil
	}
	upper := strings.ToUpper(s)
	upper = strings.TrimSuffix(upper, "B")
	if upper != "" && strings.ContainsAny(upper[len(upper)-1:], "KMGT") {
		upper += "iB"
	}
	b, err := humanize.ParseBytes(upper)
	if err != nil {
		return 0, errors.Wrapf(err, "can't convert memory size %q to bytes", size)
	}
	return b, nil
}

// FormatMemory formats a number of bytes using the largest binary unit
// that represents it exactly
func FormatMemory(b uint64) string {
	for _, u := range memoryUnits {
		if b >= u.size && b%u.size == 0 {
			return fmt.Sprintf("%d%s", b/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%dK", (b+humanize.KiByte-1)/humanize.KiByte)
}

// MultiplyMemory multiplies a scheduler memory request by the given factor,
// for instance to turn a memory per core into a memory per node.
func MultiplyMemory(size string, factor int) (string, error) {
	if factor <= 0 {
		return "", errors.Errorf("invalid memory factor %d for size %q", factor, size)
	}
	b, err := ParseMemory(size)
	if err != nil {
		return "", err
	}
	return FormatMemory(b * uint64(factor)), nil
}
