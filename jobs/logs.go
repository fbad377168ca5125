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

package jobs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/helper/pathutil"
	"github.com/ystia/clusterjob/log"
)

// WaitForLog blocks until the scheduler creates the job output log and
// returns its path
func (j *Job) WaitForLog(ctx context.Context) (string, error) {
	if err := j.checkSubmitted("wait for the log of"); err != nil {
		return "", err
	}
	if j.logPath == "" {
		return "", errors.Errorf("backend %q gave no log path for job %q", j.backend.Name(), j.jobID)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", errors.Wrap(err, "failed to create log watcher")
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(j.logPath)); err != nil {
		return "", errors.Wrapf(err, "failed to watch directory of log %q", j.logPath)
	}
	// The log may have been created before the watch started
	exists, err := pathutil.FileExists(j.logPath)
	if err != nil {
		return "", err
	}
	if exists {
		return j.logPath, nil
	}
	for {
		select {
		case <-ctx.Done():
			return "", errors.Wrapf(ctx.Err(), "log %q of job %q not found", j.logPath, j.jobID)
		case event, ok := <-watcher.Events:
			if !ok {
				return "", errors.Errorf("log watcher of job %q closed", j.jobID)
			}
			if filepath.Clean(event.Name) == filepath.Clean(j.logPath) && event.Has(fsnotify.Create|fsnotify.Write) {
				return j.logPath, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return "", errors.Errorf("log watcher of job %q closed", j.jobID)
			}
			log.Debugf("Log watcher of job %q: %v", j.jobID, err)
		}
	}
}

// Cleanup removes the scheduler output log unless the configuration keeps
// backend logs. Failures are only logged.
func (j *Job) Cleanup() {
	if j.cfg.KeepBackendLogs || j.logPath == "" {
		return
	}
	if err := os.Remove(j.logPath); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove log %q of job %q: %v", j.logPath, j.jobID, err)
		return
	}
	log.Debugf("Log %q of job %q removed", j.logPath, j.jobID)
}
