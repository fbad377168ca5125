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

// Package ledger keeps a persistent record of submitted jobs and of their
// last observed status
package ledger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ystia/clusterjob/helper/pathutil"
	"github.com/ystia/clusterjob/prov"
)

// Record is a submitted job
type Record struct {
	ID          string `gorm:"primaryKey"`
	Backend     string `gorm:"uniqueIndex:idx_backend_job;not null"`
	JobID       string `gorm:"uniqueIndex:idx_backend_job;not null"`
	SubDir      string
	ScriptPath  string
	LogPath     string
	Status      prov.Status
	RawStatus   string
	SubmittedAt time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// Ledger stores records in a SQLite database
type Ledger struct {
	db *gorm.DB
}

// Open opens (and creates if needed) the ledger database at path
func Open(path string) (*Ledger, error) {
	p, err := pathutil.Expand(path)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return nil, errors.Wrapf(err, "failed to create ledger directory for %q", p)
	}
	db, err := gorm.Open(sqlite.Open(p), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ledger %q", p)
	}
	if err = db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrapf(err, "failed to initialize ledger %q", p)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to close ledger")
	}
	return errors.Wrap(sqlDB.Close(), "failed to close ledger")
}

// RecordSubmission stores a newly submitted job.
//
// Schedulers may reuse job ids after a reset, an existing record for the
// same backend and job id is replaced.
func (l *Ledger) RecordSubmission(backend, jobID, subDir, scriptPath, logPath string) error {
	now := time.Now()
	r := Record{
		ID:          uuid.NewV4().String(),
		Backend:     backend,
		JobID:       jobID,
		SubDir:      subDir,
		ScriptPath:  scriptPath,
		LogPath:     logPath,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "backend"}, {Name: "job_id"}},
		UpdateAll: true,
	}).Create(&r).Error
	return errors.Wrapf(err, "failed to record submission of job %q on backend %q", jobID, backend)
}

// RecordStatus updates the last observed status of a job
func (l *Ledger) RecordStatus(backend, jobID string, status prov.Status, raw string) error {
	res := l.db.Model(&Record{}).
		Where("backend = ? AND job_id = ?", backend, jobID).
		Updates(map[string]interface{}{"status": status, "raw_status": raw, "updated_at": time.Now()})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to record status of job %q on backend %q", jobID, backend)
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("job %q of backend %q is not in the ledger", jobID, backend)
	}
	return nil
}

// Get returns the record of a job
func (l *Ledger) Get(backend, jobID string) (Record, error) {
	var r Record
	err := l.db.Where("backend = ? AND job_id = ?", backend, jobID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, errors.Errorf("job %q of backend %q is not in the ledger", jobID, backend)
	}
	return r, errors.Wrapf(err, "failed to read job %q of backend %q from the ledger", jobID, backend)
}

// List returns the most recent submissions first. An empty backend lists
// all backends, a limit lower or equal to 0 means no limit.
func (l *Ledger) List(backend string, limit int) ([]Record, error) {
	q := l.db.Order("submitted_at desc")
	if backend != "" {
		q = q.Where("backend = ?", backend)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []Record
	err := q.Find(&records).Error
	return records, errors.Wrap(err, "failed to list ledger records")
}
