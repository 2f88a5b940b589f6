// Package backup keeps timestamped copies of the published artifact so any
// failed run can put the prior bytes back. The pipeline never deletes backups.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/internal/util"
	"github.com/teranos/refresh/logger"
)

// TimestampLayout is the second-resolution stamp embedded in backup names
const TimestampLayout = "20060102_150405"

// ErrNoBackups is returned by Latest when the directory holds no records
var ErrNoBackups = errors.New("no backups found")

// Record is one backup file. The empty record (Path == "") stands for
// "there was no artifact", and restores to an absent artifact.
type Record struct {
	Path      string
	CreatedAt time.Time
	Size      int64
}

// Empty reports whether the record stands for a missing artifact
func (r *Record) Empty() bool {
	return r == nil || r.Path == ""
}

// Name returns the backup file name, "" for the empty record
func (r *Record) Name() string {
	if r.Empty() {
		return ""
	}
	return filepath.Base(r.Path)
}

// Store creates and restores backups in a single directory
type Store struct {
	dir    string
	prefix string
	now    func() time.Time
	logger *zap.SugaredLogger
	names  *regexp.Regexp
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now, for deterministic names in tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store writing <dir>/<prefix>YYYYMMDD_HHMMSS.js files
func NewStore(dir, prefix string, log *zap.SugaredLogger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Store{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
		logger: log,
		names:  regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d{8}_\d{6})(?:_(\d+))?\.js$`),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the backup directory
func (s *Store) Dir() string {
	return s.dir
}

// Snapshot copies the artifact into a new backup file. A missing artifact
// yields the empty record and no error. Once Snapshot returns, the copy is
// durable on disk.
func (s *Store) Snapshot(artifactPath string) (*Record, error) {
	if _, err := os.Stat(artifactPath); os.IsNotExist(err) {
		s.logger.Infow("No artifact to back up", logger.FieldArtifact, artifactPath)
		return &Record{}, nil
	} else if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to stat artifact %s", artifactPath), errors.ErrWrite)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to create backup directory %s", s.dir), errors.ErrWrite)
	}

	created := s.now().Truncate(time.Second)
	path, err := s.reserve(created)
	if err != nil {
		return nil, err
	}

	size, err := util.CopyFileAtomic(artifactPath, path)
	if err != nil {
		os.Remove(path)
		return nil, errors.Mark(errors.Wrap(err, "failed to back up artifact"), errors.ErrWrite)
	}

	rec := &Record{Path: path, CreatedAt: created, Size: size}
	s.logger.Infow("Backed up artifact",
		logger.FieldArtifact, artifactPath,
		logger.FieldBackup, rec.Name(),
		logger.FieldSize, size,
	)
	return rec, nil
}

// reserve claims a free backup name for the given second. The file is
// created exclusively, so two runs in the same second get distinct names.
func (s *Store) reserve(created time.Time) (string, error) {
	stamp := created.Format(TimestampLayout)
	for n := 0; n < 1000; n++ {
		name := s.prefix + stamp + ".js"
		if n > 0 {
			name = fmt.Sprintf("%s%s_%d.js", s.prefix, stamp, n)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Mark(errors.Wrapf(err, "failed to create backup %s", path), errors.ErrWrite)
		}
		f.Close()
		return path, nil
	}
	return "", errors.Mark(errors.Newf("too many backups for %s", stamp), errors.ErrWrite)
}

// Restore overwrites the artifact with the record's bytes, or removes the
// artifact for the empty record. Restoring the same record twice leaves the
// same result.
func (s *Store) Restore(rec *Record, artifactPath string) error {
	if rec.Empty() {
		if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
			return errors.Mark(errors.Wrapf(err, "failed to remove artifact %s", artifactPath), errors.ErrWrite)
		}
		s.logger.Infow("Restored absent artifact", logger.FieldArtifact, artifactPath)
		return nil
	}

	if _, err := util.CopyFileAtomic(rec.Path, artifactPath); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to restore %s", rec.Name()), errors.ErrWrite)
	}
	s.logger.Infow("Restored artifact",
		logger.FieldArtifact, artifactPath,
		logger.FieldBackup, rec.Name(),
	)
	return nil
}

// List returns every backup in the directory, oldest first.
// Files that do not follow the naming scheme are ignored.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read backup directory %s", s.dir)
	}

	type ordered struct {
		rec *Record
		seq int
	}
	var found []ordered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := s.names.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		created, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
		if err != nil {
			continue
		}
		seq := 0
		if m[2] != "" {
			seq, _ = strconv.Atoi(m[2])
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, ordered{
			rec: &Record{Path: filepath.Join(s.dir, e.Name()), CreatedAt: created, Size: info.Size()},
			seq: seq,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].rec.CreatedAt.Equal(found[j].rec.CreatedAt) {
			return found[i].rec.CreatedAt.Before(found[j].rec.CreatedAt)
		}
		return found[i].seq < found[j].seq
	})

	records := make([]*Record, len(found))
	for i, o := range found {
		records[i] = o.rec
	}
	return records, nil
}

// Latest returns the most recent backup or ErrNoBackups
func (s *Store) Latest() (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoBackups
	}
	return records[len(records)-1], nil
}

// Find returns the latest backup created at t (second resolution).
// It fails when no backup carries that timestamp.
func (s *Store) Find(t time.Time) (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	want := t.Truncate(time.Second)
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].CreatedAt.Equal(want) {
			return records[i], nil
		}
	}
	return nil, errors.WithHint(
		errors.Newf("no backup created at %s", want.Format("2006-01-02 15:04:05")),
		"run `refresh backups` to list available timestamps",
	)
}

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102150405",
}

// ParseTimestamp reads a backup timestamp as typed by an operator, in local time
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.WithHintf(
		errors.Newf("invalid backup timestamp %q", s),
		"use the %s form shown by `refresh backups`", "YYYYMMDD_HHMMSS",
	)
}
