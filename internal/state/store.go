package state

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"
	"github.com/krti/uavcore/log2"
)

// Store persists NetworkConfig. The core calls Save only with
// already-validated configs.
type Store interface {
	// Load returns (nil, nil) when nothing was persisted yet.
	Load() (*NetworkConfig, error)
	Save(*NetworkConfig) error
}

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

// fileStore keeps the config as JSON bytes in extremofile: survives
// power loss mid-write, which on this device is the common case.
type fileStore struct {
	log     *log2.Log
	storage storage
}

func NewFileStore(log *log2.Log, root string) Store {
	return &fileStore{
		log: log,
		storage: extremofile.New(extremofile.Config{
			Dir:      filepath.Join(root, "network"),
			DirPerm:  0700,
			FilePerm: 0600,
		}),
	}
}

func (s *fileStore) Load() (*NetworkConfig, error) {
	b, err := s.storage.Read()
	if b == nil {
		if err != nil {
			s.log.Debugf("store empty err=%v", err)
		}
		return nil, nil
	}
	if err != nil {
		// non-critical: backup copy was used
		s.log.Errorf("store ignore non-critical read err=%v", err)
	}
	nc := new(NetworkConfig)
	if err := json.Unmarshal(b, nc); err != nil {
		return nil, errors.Annotate(err, "store unmarshal")
	}
	if err := nc.Validate(); err != nil {
		return nil, errors.Annotate(err, "store validate")
	}
	return nc, nil
}

func (s *fileStore) Save(nc *NetworkConfig) error {
	if err := nc.Validate(); err != nil {
		return errors.Annotate(err, "store save validate")
	}
	b, err := json.Marshal(nc)
	if err != nil {
		return errors.Annotate(err, "store marshal")
	}
	_, err = s.storage.Write(b)
	return errors.Annotate(err, "store write")
}

// MemStore is the test collaborator.
type MemStore struct {
	Current  *NetworkConfig
	SaveErr  error
	Saves    int
	LoadErr  error
}

func (m *MemStore) Load() (*NetworkConfig, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Current == nil {
		return nil, nil
	}
	copied := *m.Current
	return &copied, nil
}

func (m *MemStore) Save(nc *NetworkConfig) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	copied := *nc
	m.Current = &copied
	m.Saves++
	return nil
}
