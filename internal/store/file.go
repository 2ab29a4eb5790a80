package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aravhawk/openrank/internal/telemetry"

	"golang.org/x/crypto/bcrypt"
)

const (
	report_store_load = "filestore.load"
	report_store_save = "filestore.save"
)

// the insecure local-testing default; never rely on it in production
const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
	seedAdminName     = "OpenRank Admin"
)

// fileState is the on-disk layout: one JSON document holding the seeded
// admin accounts and every student record.
type fileState struct {
	Users    []AdminAccount  `json:"users"`
	Students []StudentRecord `json:"students"`
}

// FileStore is a Store backed by a single JSON file. Every mutation rewrites
// the whole file; writes are serialized by a mutex and done atomically
// (temp file + rename) so a crash mid-write cannot leave a truncated store.
type FileStore struct {
	path string
	tel  telemetry.API

	mu    sync.RWMutex
	state fileState
}

// NewFileStore loads the store at path, creating and seeding it (including
// the default admin account) when it does not exist yet. A corrupt file is
// reset to the seeded initial state so the app stays usable.
func NewFileStore(path string, tel telemetry.API) (*FileStore, error) {
	tel = telemetry.NewScopedAPI("store", tel)
	s := &FileStore{path: path, tel: tel}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, s.reset()
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	err = json.Unmarshal(contents, &s.state)
	if err != nil {
		tel.ReportWarning(report_store_load, fmt.Errorf("corrupt store, resetting: %w", err), path)
		return s, s.reset()
	}
	return s, nil
}

func seededState() (fileState, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fileState{}, err
	}
	return fileState{
		Users: []AdminAccount{{
			Username:     seedAdminUsername,
			PasswordHash: string(hash),
			Name:         seedAdminName,
		}},
		Students: []StudentRecord{},
	}, nil
}

func (s *FileStore) reset() error {
	state, err := seededState()
	if err != nil {
		return err
	}
	s.state = state
	return s.save()
}

// save rewrites the backing file. Callers must hold the write lock (or have
// exclusive access during construction).
func (s *FileStore) save() error {
	contents, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".students-*.json")
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, s.path)
		return err
	}
	_, err = tmp.Write(contents)
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		s.tel.ReportBroken(report_store_save, err, s.path)
		return err
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		os.Remove(tmp.Name())
		s.tel.ReportBroken(report_store_save, err, s.path)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, username string) (StudentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.state.Students {
		if record.Username == username {
			return record, true, nil
		}
	}
	return StudentRecord{}, false, nil
}

func (s *FileStore) Upsert(ctx context.Context, record StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, existing := range s.state.Students {
		if existing.Username == record.Username {
			s.state.Students[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		s.state.Students = append(s.state.Students, record)
	}

	return s.save()
}

func (s *FileStore) All(ctx context.Context) ([]StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StudentRecord, len(s.state.Students))
	copy(out, s.state.Students)
	return out, nil
}

func (s *FileStore) GetAdmin(ctx context.Context, username string) (AdminAccount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, admin := range s.state.Users {
		if admin.Username == username {
			return admin, true, nil
		}
	}
	return AdminAccount{}, false, nil
}
