package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/workspace-monitor/pkg/models/domain"
)

const (
	latestName   = "latest.json"
	snapshotName = "dashboard.json"
	logsDirName  = "logs"

	reportStamp = "20060102-150405"
	logStamp    = "20060102"
)

// Settings contain configuration for the report store.
type Settings struct {
	Dir string
}

// Store persists timestamped report documents per category, maintains the
// per-category latest pointer and applies retention pruning.
type Store struct {
	dir string

	mu      sync.Mutex
	latches map[domain.ReportCategory]*sync.Mutex
}

// New creates the store layout under settings.Dir.
func New(settings Settings) (*Store, error) {
	if settings.Dir == "" {
		return nil, fmt.Errorf("report store requires a directory")
	}
	for _, c := range domain.AllCategories() {
		if err := os.MkdirAll(filepath.Join(settings.Dir, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("create report dir for %s: %w", c, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(settings.Dir, logsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &Store{
		dir:     settings.Dir,
		latches: make(map[domain.ReportCategory]*sync.Mutex),
	}, nil
}

func (s *Store) categoryDir(c domain.ReportCategory) string {
	return filepath.Join(s.dir, string(c))
}

func (s *Store) reportPath(id domain.ReportIdentity) string {
	return filepath.Join(s.categoryDir(id.Category), id.Name)
}

func (s *Store) latestPath(c domain.ReportCategory) string {
	return filepath.Join(s.categoryDir(c), latestName)
}

// latch serializes latest-pointer updates for one category. Categories do
// not contend with each other.
func (s *Store) latch(c domain.ReportCategory) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.latches[c]
	if !ok {
		m = &sync.Mutex{}
		s.latches[c] = m
	}
	return m
}

// Persist writes the document under its derived name. The write is atomic:
// readers never observe a partially written report.
func (s *Store) Persist(doc domain.ReportDocument) (domain.ReportIdentity, error) {
	id := doc.Identity()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.ReportIdentity{}, fmt.Errorf("encode report %s: %w", id, err)
	}
	if err := atomicWrite(s.reportPath(id), data); err != nil {
		return domain.ReportIdentity{}, fmt.Errorf("persist report %s: %w", id, err)
	}
	return id, nil
}

// Get retrieves a previously persisted document by identity.
func (s *Store) Get(id domain.ReportIdentity) (domain.ReportDocument, error) {
	data, err := os.ReadFile(s.reportPath(id))
	if err != nil {
		return domain.ReportDocument{}, fmt.Errorf("read report %s: %w", id, err)
	}
	var doc domain.ReportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ReportDocument{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return doc, nil
}

// UpdateLatest atomically repoints the category's latest pointer. The target
// must already be durably persisted.
func (s *Store) UpdateLatest(c domain.ReportCategory, id domain.ReportIdentity) error {
	if id.Category != c {
		return fmt.Errorf("identity %s does not belong to category %s", id, c)
	}
	if _, err := os.Stat(s.reportPath(id)); err != nil {
		return fmt.Errorf("latest pointer target %s: %w", id, err)
	}

	m := s.latch(c)
	m.Lock()
	defer m.Unlock()

	tmp := filepath.Join(s.categoryDir(c), ".latest.tmp")
	_ = os.Remove(tmp)
	if err := os.Symlink(id.Name, tmp); err != nil {
		return fmt.Errorf("stage latest pointer for %s: %w", c, err)
	}
	if err := os.Rename(tmp, s.latestPath(c)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap latest pointer for %s: %w", c, err)
	}
	return nil
}

// Latest resolves the category's latest pointer. The second return value is
// false when the pointer was never set or its target is gone.
func (s *Store) Latest(c domain.ReportCategory) (domain.ReportDocument, bool, error) {
	data, err := os.ReadFile(s.latestPath(c))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ReportDocument{}, false, nil
	}
	if err != nil {
		return domain.ReportDocument{}, false, fmt.Errorf("resolve latest %s report: %w", c, err)
	}
	var doc domain.ReportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ReportDocument{}, false, fmt.Errorf("decode latest %s report: %w", c, err)
	}
	return doc, true, nil
}

// latestTarget returns the file name the latest pointer currently references.
func (s *Store) latestTarget(c domain.ReportCategory) (string, bool) {
	target, err := os.Readlink(s.latestPath(c))
	if err != nil {
		return "", false
	}
	return filepath.Base(target), true
}

// Prune removes reports and log files older than the retention window. The
// document referenced by a latest pointer survives regardless of age.
// Pruning is idempotent.
func (s *Store) Prune(policy domain.RetentionPolicy, now time.Time) (int, error) {
	cutoff := now.UTC().AddDate(0, 0, -policy.MaxAgeDays)
	removed := 0

	for _, c := range domain.AllCategories() {
		keep, _ := s.latestTarget(c)
		entries, err := os.ReadDir(s.categoryDir(c))
		if err != nil {
			return removed, fmt.Errorf("scan %s reports: %w", c, err)
		}
		for _, e := range entries {
			name := e.Name()
			if name == latestName || name == keep {
				continue
			}
			stamp, ok := reportTimestamp(c, name)
			if !ok || !stamp.Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(s.categoryDir(c), name)); err != nil {
				return removed, fmt.Errorf("prune report %s/%s: %w", c, name, err)
			}
			removed++
		}
	}

	logDir := filepath.Join(s.dir, logsDirName)
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return removed, fmt.Errorf("scan logs: %w", err)
	}
	for _, e := range entries {
		stamp, ok := logTimestamp(e.Name())
		if !ok || !stamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(logDir, e.Name())); err != nil {
			return removed, fmt.Errorf("prune log %s: %w", e.Name(), err)
		}
		removed++
	}

	return removed, nil
}

// WriteSnapshot atomically replaces the dashboard artifact.
func (s *Store) WriteSnapshot(snap domain.DashboardSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dashboard snapshot: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, snapshotName), data); err != nil {
		return fmt.Errorf("write dashboard snapshot: %w", err)
	}
	return nil
}

// LogWriter opens the dated run log for appending. Log files share the
// report retention window.
func (s *Store) LogWriter(now time.Time) (*os.File, error) {
	name := fmt.Sprintf("monitor-%s.log", now.UTC().Format(logStamp))
	return os.OpenFile(filepath.Join(s.dir, logsDirName, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// reportTimestamp recovers the generation time embedded in a report name,
// e.g. security-20260115-093000.json.
func reportTimestamp(c domain.ReportCategory, name string) (time.Time, bool) {
	prefix := string(c) + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
	stamp, err := time.Parse(reportStamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

func logTimestamp(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "monitor-") || !strings.HasSuffix(name, ".log") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, "monitor-"), ".log")
	stamp, err := time.Parse(logStamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}
