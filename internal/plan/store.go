// Package plan persists the ordered, status-bearing task sequence of
// one run as a single JSON document, the plan file, and coordinates
// every mutation of it through an exclusive cross-process file lock.
// The lock-protected read-modify-write of the whole document is the
// atomic unit that lets any number of worker threads in any number of
// processes share one schedule without talking to each other.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/tuetschek/en-deep/internal/task"
)

const (
	// planSuffix is appended to the scenario path to derive the plan
	// file location; lockSuffix likewise for the lock file. The lock is
	// a sidecar so its inode stays stable while the document itself is
	// atomically replaced.
	planSuffix = ".plan"
	lockSuffix = ".lock"

	documentVersion = 1
)

// ErrStoreUnavailable wraps every I/O failure while locking, reading or
// writing the plan file. It is fatal to the calling operation and never
// retried at this layer.
var ErrStoreUnavailable = errors.New("plan store unavailable")

// document is the serialized form of the whole plan.
type document struct {
	Version int                 `json:"version"`
	Tasks   []*task.Description `json:"tasks"`
}

// Store owns the plan file for one scenario and hands out exclusive
// access to it. Safe for concurrent use from any number of goroutines
// and processes; every Lock call opens its own file descriptor, so
// flock excludes sibling threads as well as other processes.
type Store struct {
	docPath  string
	lockPath string
}

// NewStore derives the plan and lock file locations from the scenario
// file path.
func NewStore(scenarioPath string) *Store {
	return &Store{
		docPath:  scenarioPath + planSuffix,
		lockPath: scenarioPath + lockSuffix,
	}
}

// Path returns the plan file location.
func (s *Store) Path() string {
	return s.docPath
}

// EnsureExists creates the plan file empty if it does not exist yet.
// An empty file is the documented "no plan computed yet" sentinel.
func (s *Store) EnsureExists() error {
	f, err := os.OpenFile(s.docPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStoreUnavailable, s.docPath, err)
	}
	return f.Close()
}

// WithLock acquires the exclusive lock (blocking until available), runs
// fn, and releases the lock on every exit path.
func (s *Store) WithLock(fn func() error) error {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("%w: opening lock file: %v", ErrStoreUnavailable, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("%w: flock: %v", ErrStoreUnavailable, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()

	return fn()
}

// Read loads the whole plan document. It must be called while holding
// the lock. An absent or empty file yields a nil task slice, the "no
// plan yet" condition.
func (s *Store) Read() ([]*task.Description, error) {
	data, err := os.ReadFile(s.docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStoreUnavailable, s.docPath, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt plan file %s: %v", ErrStoreUnavailable, s.docPath, err)
	}
	return doc.Tasks, nil
}

// Write replaces the whole plan document. It must be called while
// holding the lock. The data is written to a temporary file and renamed
// into place so a killed process can never leave a half-written plan.
func (s *Store) Write(tasks []*task.Description) error {
	data, err := json.MarshalIndent(document{Version: documentVersion, Tasks: tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling plan: %v", ErrStoreUnavailable, err)
	}

	tmp := s.docPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStoreUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, s.docPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", ErrStoreUnavailable, s.docPath, err)
	}
	return nil
}

// Snapshot takes the lock and returns a deep copy of the current plan,
// or nil if no plan has been computed yet. Used by the status and watch
// views, which never mutate.
func (s *Store) Snapshot() ([]*task.Description, error) {
	var out []*task.Description
	err := s.WithLock(func() error {
		tasks, err := s.Read()
		if err != nil {
			return err
		}
		for _, t := range tasks {
			out = append(out, t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
