package run

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/toejough/decoreg"
)

// Exported constants.
const (
	// CacheDirName is the name of the local cache directory.
	CacheDirName = ".decoreg"
	// CacheFileName is the cache file inside CacheDirName.
	CacheFileName = "cache.json"
	// DirPerm is the default directory permission.
	DirPerm = 0o755
	// FilePerm is the default file permission.
	FilePerm = 0o600
)

// CacheData represents the structure of the persistent disk cache.
type CacheData struct {
	Entries map[string]CacheEntry `json:"entries"`
}

// CacheEntry is the result of the last run over one file.
type CacheEntry struct {
	// Signature hashes the pass configuration together with the input bytes.
	Signature string         `json:"signature"`
	Changed   bool           `json:"changed"`
	Content   string         `json:"content,omitempty"`
	Report    decoreg.Report `json:"report"`
}

// CacheSignature hashes the pass signature and a file's contents.
func CacheSignature(passSignature string, src []byte) string {
	sum := sha256.New()
	sum.Write([]byte(passSignature))
	sum.Write([]byte{0})
	sum.Write(src)

	return hex.EncodeToString(sum.Sum(nil))
}

// FindProjectRoot locates the nearest directory, from the working directory up, holding a
// decoreg config file or a package.json.
func FindProjectRoot(fileSys FileSystem, configName string) (string, error) {
	curr, err := fileSys.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		for _, marker := range []string{configName, "package.json"} {
			_, err = fileSys.Stat(filepath.Join(curr, marker))
			if err == nil {
				return curr, nil
			}
		}

		parent := filepath.Dir(curr)
		if parent == curr {
			return "", errProjectRootNotFound
		}

		curr = parent
	}
}

// LoadDiskCache reads the cache from the specified path. A missing or unreadable cache is empty.
func LoadDiskCache(path string, fileSys FileSystem) CacheData {
	data := CacheData{Entries: map[string]CacheEntry{}}

	raw, err := fileSys.ReadFile(path)
	if err != nil {
		return data
	}

	var loaded CacheData

	err = json.Unmarshal(raw, &loaded)
	if err != nil || loaded.Entries == nil {
		return data
	}

	return loaded
}

// SaveDiskCache writes the cache to the specified path.
func SaveDiskCache(path string, data CacheData, fileSys FileSystem) error {
	err := fileSys.MkdirAll(filepath.Dir(path), DirPerm)
	if err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	err = fileSys.WriteFile(path, raw, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	return nil
}

// unexported variables.
var (
	errProjectRootNotFound = errors.New("could not find project root (config file or package.json)")
)

// diskCache is the cache shared by the workers of one command. A nil *diskCache is a disabled
// cache.
type diskCache struct {
	mu      sync.Mutex
	path    string
	fileSys FileSystem
	data    CacheData
	dirty   bool
}

func (c *diskCache) get(name string) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data.Entries[name]

	return entry, ok
}

func (c *diskCache) put(name string, entry CacheEntry) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Entries[name] = entry
	c.dirty = true
}

// save writes the cache if anything was added since the last save.
func (c *diskCache) save() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	err := SaveDiskCache(c.path, c.data, c.fileSys)
	if err != nil {
		return err
	}

	c.dirty = false

	return nil
}

// openCache loads the project cache, or returns nil when caching is off.
func (a *app) openCache() *diskCache {
	if a.v.GetBool("no-cache") {
		return nil
	}

	root, err := FindProjectRoot(a.fileSys, filepath.Base(a.v.GetString("config")))
	if err != nil {
		a.logger.Debug("no project root, caching in the working directory", "err", err)
		root = "."
	}

	path := filepath.Join(root, CacheDirName, CacheFileName)

	return &diskCache{path: path, fileSys: a.fileSys, data: LoadDiskCache(path, a.fileSys)}
}
