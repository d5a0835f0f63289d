// Package storage persists the run settings, the tally and step table
// overrides on flash using LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	configDir    = "/config"
	tablesDir    = "/config/tables"
	settingsFile = "/config/settings.bin"
	tallyFile    = "/config/tally.bin"
	tempSuffix   = ".tmp"
	tableSuffix  = ".bin"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrFlashFull       = errors.New("insufficient flash space")
	ErrInvalidData     = errors.New("invalid stored data")
	ErrVersionMismatch = errors.New("config version mismatch")
)

// Manager handles persistence using LittleFS. It is safe for use by
// multiple goroutines.
type Manager struct {
	mu       sync.Mutex
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace int64
	UsedSpace  int64
	FreeSpace  int64
	TableCount int
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool) (*Manager, error) {
	lfs := littlefs.New(blockDev)

	// Conservative settings for RP2040 flash
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
	}

	// Leftover temp files only waste space; keep going if they can't be removed
	_ = m.bootCleanup()

	needsWipe, err := m.checkVersion()
	if err != nil {
		// Unreadable settings are treated like a first boot
		needsWipe = false
	}

	if needsWipe {
		// Stored data from another firmware layout is dropped; the host can
		// write it again
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	for _, dir := range []string{configDir, tablesDir} {
		entries, err := m.readDir(dir)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return err
		}

		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), tempSuffix) {
				m.fs.Remove(path.Join(dir, entry.Name()))
			}
		}
	}
	return nil
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reports whether the stored settings come from a different
// config version.
func (m *Manager) checkVersion() (bool, error) {
	var s config.Settings
	if err := m.loadSettings(&s); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}

	return s.Version != config.CurrentVersion, nil
}

// wipeAll removes all stored files.
func (m *Manager) wipeAll() error {
	if indexes, err := m.listTables(); err == nil {
		for _, i := range indexes {
			m.fs.Remove(m.tablePath(i))
		}
	}

	m.fs.Remove(settingsFile)
	m.fs.Remove(tallyFile)

	return nil
}

// ensureDirs creates the config directories if they don't exist.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(configDir, 0755); err != nil && !isExist(err) {
		return err
	}
	if err := m.fs.Mkdir(tablesDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNotExist is isExist for missing files and directories.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

// readFile reads a whole file, returning ErrNotFound if it is missing.
func (m *Manager) readFile(name string) ([]byte, error) {
	f, err := m.fs.Open(name)
	if err != nil {
		if isNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	var data []byte
	buf := make([]byte, 128)
	for {
		n, err := f.Read(buf)
		data = append(data, buf[:n]...)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF || n == 0 {
			break
		}
	}
	return data, nil
}

// LoadSettings loads the run settings.
func (m *Manager) LoadSettings(s *config.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadSettings(s)
}

func (m *Manager) loadSettings(s *config.Settings) error {
	data, err := m.readFile(settingsFile)
	if err != nil {
		return err
	}
	if len(data) != config.SettingsSize {
		return ErrInvalidData
	}
	return s.UnmarshalBinary(data)
}

// SaveSettings saves the run settings atomically.
func (m *Manager) SaveSettings(s *config.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDirs(); err != nil {
		return err
	}

	s.Version = config.CurrentVersion

	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	return m.atomicWrite(settingsFile, data)
}

// LoadTally loads the tally. A missing tally returns ErrNotFound.
func (m *Manager) LoadTally(t *config.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.readFile(tallyFile)
	if err != nil {
		return err
	}
	if len(data) != config.TallySize {
		return ErrInvalidData
	}
	return t.UnmarshalBinary(data)
}

// SaveTally saves the tally atomically.
func (m *Manager) SaveTally(t *config.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDirs(); err != nil {
		return err
	}

	t.Version = config.CurrentVersion

	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}

	return m.atomicWrite(tallyFile, data)
}

// ResetTally removes the stored tally.
func (m *Manager) ResetTally() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.fs.Remove(tallyFile)
	if err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

// LoadTable loads the step table override stored for a library index.
func (m *Manager) LoadTable(index uint8) ([]sequence.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.readFile(m.tablePath(index))
	if err != nil {
		return nil, err
	}

	steps, err := sequence.UnmarshalSteps(data)
	if err != nil {
		return nil, ErrInvalidData
	}
	return steps, nil
}

// SaveTable stores a step table override for a library index atomically.
func (m *Manager) SaveTable(index uint8, steps []sequence.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDirs(); err != nil {
		return err
	}

	data, err := sequence.MarshalSteps(steps)
	if err != nil {
		return err
	}

	if !m.canFit(len(data)) {
		return ErrFlashFull
	}

	return m.atomicWrite(m.tablePath(index), data)
}

// DeleteTable removes the override for a library index.
func (m *Manager) DeleteTable(index uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.fs.Remove(m.tablePath(index))
	if err != nil && isNotExist(err) {
		return ErrNotFound
	}
	return err
}

// TableExists checks if an override exists for a library index.
func (m *Manager) TableExists(index uint8) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.fs.Open(m.tablePath(index))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// ListTables returns the library indexes that have an override stored.
func (m *Manager) ListTables() ([]uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listTables()
}

func (m *Manager) listTables() ([]uint8, error) {
	entries, err := m.readDir(tablesDir)
	if err != nil {
		if isNotExist(err) {
			return []uint8{}, nil
		}
		return nil, err
	}

	indexes := []uint8{}
	for _, entry := range entries {
		name := entry.Name()
		// "N.bin"; temp files end in .tmp and are skipped here
		if !strings.HasSuffix(name, tableSuffix) {
			continue
		}

		if i, err := strconv.ParseUint(strings.TrimSuffix(name, tableSuffix), 10, 8); err == nil {
			indexes = append(indexes, uint8(i))
		}
	}

	return indexes, nil
}

// GetStats returns storage statistics.
func (m *Manager) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getStats()
}

func (m *Manager) getStats() (*Stats, error) {
	tables, err := m.listTables()
	if err != nil {
		return nil, err
	}

	// LittleFS has no free space call. Estimate one block per file plus the
	// two directories; every file is far smaller than a block.
	blockSize := m.blockDev.EraseBlockSize()
	files := len(tables) + 2
	used := int64(files+2) * blockSize

	total := m.blockDev.Size()

	return &Stats{
		TotalSpace: total,
		UsedSpace:  used,
		FreeSpace:  total - used,
		TableCount: len(tables),
	}, nil
}

// canFit estimates if n more bytes can be stored.
func (m *Manager) canFit(n int) bool {
	stats, err := m.getStats()
	if err != nil {
		return false
	}
	// A new file costs a block plus room for the copy-on-write of its directory
	return stats.FreeSpace > 2*m.blockDev.EraseBlockSize()+int64(n)
}

// tablePath returns the filesystem path for a library index.
func (m *Manager) tablePath(index uint8) string {
	return path.Join(tablesDir, strconv.Itoa(int(index))+tableSuffix)
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// The original file is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync before the rename so the data is on flash
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}

// ForceWipe erases all stored settings, tally and tables.
func (m *Manager) ForceWipe() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.wipeAll()
}
