package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "index.gob"

// minCompressSize is the smallest value worth running through zstd.
const minCompressSize = 1024

// Disk persists items as files under a directory, with a gob encoded index
// written on Close.
type Disk struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64
	index    map[string]*diskEntry
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type diskEntry struct {
	Key        string
	File       string
	Size       int64 // bytes on disk
	RawSize    int64
	Created    time.Time
	LastAccess time.Time
	Hits       int64
	Compressed bool
}

// NewDisk opens or creates a disk tier in dir. A level of 0 disables
// compression.
func NewDisk(dir string, capacity int64, level int) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if level > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("unable to create zstd encoder: %w", err)
		}
		d.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to create zstd decoder: %w", err)
		}
	}

	if err := d.loadIndex(); err != nil {
		// a broken index only costs a cold cache
		d.index = make(map[string]*diskEntry)
	}
	for _, e := range d.index {
		d.size += e.Size
	}
	return d, nil
}

// Get reads and decompresses the item stored under key.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	data, err := d.read(e)
	if err != nil {
		d.drop(key, e)
		d.stats.Misses++
		return nil, false
	}

	e.LastAccess = time.Now()
	e.Hits++
	d.stats.Hits++
	return data, true
}

func (d *Disk) read(e *diskEntry) ([]byte, error) {
	data, err := os.ReadFile(e.File)
	if err != nil {
		return nil, err
	}
	if !e.Compressed {
		return data, nil
	}
	if d.decoder == nil {
		return nil, ErrCacheCorrupted
	}
	out, err := d.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Join(ErrCacheCorrupted, err)
	}
	return out, nil
}

// Put writes value to disk, compressing when that saves space.
func (d *Disk) Put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, compressed := value, false
	if d.encoder != nil && len(value) > minCompressSize {
		if z := d.encoder.EncodeAll(value, nil); len(z) < len(value) {
			data, compressed = z, true
		}
	}

	n := int64(len(data))
	if n > d.capacity {
		return ErrItemTooLarge
	}
	if old, ok := d.index[key]; ok {
		d.drop(key, old)
	}
	for d.size+n > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	file := d.path(key)
	if err := writeAtomic(file, data); err != nil {
		return fmt.Errorf("unable to write cache file: %w", err)
	}

	now := time.Now()
	d.index[key] = &diskEntry{
		Key:        key,
		File:       file,
		Size:       n,
		RawSize:    int64(len(value)),
		Created:    now,
		LastAccess: now,
		Compressed: compressed,
	}
	d.size += n
	return nil
}

// Delete removes key if present.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.index[key]; ok {
		d.drop(key, e)
	}
}

// Clear removes every file and persists the empty index.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, e := range d.index {
		d.drop(key, e)
	}
	return d.saveIndex()
}

// Contains reports whether key is indexed.
func (d *Disk) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[key]
	return ok
}

// Oldest returns up to n entries, least recently used first.
func (d *Disk) Oldest(n int) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]*diskEntry, 0, len(d.index))
	for _, e := range d.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})

	out := make([]Entry, 0, n)
	for _, e := range entries {
		if len(out) == n {
			break
		}
		out = append(out, Entry{
			Key:        e.Key,
			Size:       e.RawSize,
			Created:    e.Created,
			LastAccess: e.LastAccess,
			Hits:       e.Hits,
			Level:      LevelDisk,
		})
	}
	return out
}

// RemoveOlderThan drops entries created before cutoff.
func (d *Disk) RemoveOlderThan(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, e := range d.index {
		if e.Created.Before(cutoff) {
			d.drop(key, e)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Capacity = d.capacity
	s.Size = d.size
	s.Items = int64(len(d.index))
	return s
}

// Close persists the index.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		_ = d.encoder.Close()
	}
	if d.decoder != nil {
		d.decoder.Close()
	}
	return d.saveIndex()
}

func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:16])+".pcm")
}

func (d *Disk) drop(key string, e *diskEntry) {
	_ = os.Remove(e.File)
	delete(d.index, key)
	d.size -= e.Size
}

func (d *Disk) evictOldest() {
	var oldest *diskEntry
	for _, e := range d.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		d.drop(oldest.Key, oldest)
		d.stats.Evictions++
	}
}

func (d *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if err := gob.NewDecoder(f).Decode(&d.index); err != nil {
		return err
	}
	// forget entries whose file was removed behind our back
	for key, e := range d.index {
		if _, err := os.Stat(e.File); err != nil {
			delete(d.index, key)
		}
	}
	return nil
}

func (d *Disk) saveIndex() error {
	path := filepath.Join(d.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(d.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
