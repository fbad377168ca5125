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

package pathutil

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Expand expands a leading ~ into the current user home directory
func Expand(p string) (string, error) {
	expPath, err := homedir.Expand(p)
	return expPath, errors.Wrapf(err, "failed to expand path:%q", p)
}

// ExpandAll expands each given path, see Expand
func ExpandAll(paths []string) ([]string, error) {
	res := make([]string, 0, len(paths))
	for _, p := range paths {
		e, err := Expand(p)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// FileExists checks if the given path exists and is a regular file
func FileExists(p string) (bool, error) {
	fi, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to stat %q", p)
	}
	return fi.Mode().IsRegular(), nil
}
