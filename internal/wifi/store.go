package wifi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrCredentialsRequired = errors.New("SSID and password required")

type Credentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if c.SSID == "" || c.Password == "" {
		return ErrCredentialsRequired
	}
	return nil
}

// Encode — формат файла: две строки без завершающего перевода строки.
func (c Credentials) Encode() []byte {
	return []byte("SSID:" + c.SSID + "\nPASSWORD:" + c.Password)
}

type Store interface {
	Save(c Credentials) error
}

type filesystemManagement interface {
	writeFileAtomic(path string, data []byte) error
}

type fileManagement struct{}

// writeFileAtomic: временный файл в той же папке + rename, чтобы читатель
// не увидел наполовину записанный файл.
func (fileManagement) writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".wifi-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// FileStore — один слот: каждое сохранение полностью заменяет файл.
type FileStore struct {
	path string
	mu   sync.Mutex
	fs   filesystemManagement
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, fs: fileManagement{}}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(c Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.writeFileAtomic(s.path, c.Encode()); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
