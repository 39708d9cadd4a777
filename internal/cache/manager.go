package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager looks items up in memory, then on disk, promoting disk hits.
// Writes go to memory synchronously and to disk in the background.
type Manager struct {
	memory *Memory
	disk   *Disk // nil when no directory is configured
	config Config

	stop chan struct{}
	wg   sync.WaitGroup

	mu         sync.Mutex
	promotions int64
	sweeps     int64
}

// NewManager creates the tiers described by config and starts the TTL
// sweeper when an interval is set.
func NewManager(config Config) (*Manager, error) {
	m := &Manager{
		memory: NewMemory(config.MemoryCapacity),
		config: config,
		stop:   make(chan struct{}),
	}

	if config.DiskPath != "" {
		disk, err := NewDisk(config.DiskPath, config.DiskCapacity, config.Compression)
		if err != nil {
			return nil, fmt.Errorf("unable to open disk cache: %w", err)
		}
		m.disk = disk
	}

	if config.CleanupInterval > 0 && config.TTL > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m, nil
}

// Get returns the cached value for key.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		return data, true
	}
	if m.disk == nil {
		return nil, false
	}
	data, ok := m.disk.Get(key)
	if !ok {
		return nil, false
	}

	_ = m.memory.Put(key, data)
	m.mu.Lock()
	m.promotions++
	m.mu.Unlock()
	return data, true
}

// Put caches value under key.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && err != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", err)
	}
	if m.disk == nil {
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.disk.Put(key, value); err != nil && err != ErrItemTooLarge {
			log.Warn("disk cache write failed", "key", key, "error", err)
		}
	}()
	return nil
}

// Delete removes key from every tier.
func (m *Manager) Delete(key string) {
	m.memory.Delete(key)
	if m.disk != nil {
		m.disk.Delete(key)
	}
}

// Clear empties every tier.
func (m *Manager) Clear() error {
	m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Stats returns per tier counters.
func (m *Manager) Stats() map[Level]Stats {
	stats := map[Level]Stats{LevelMemory: m.memory.Stats()}
	if m.disk != nil {
		stats[LevelDisk] = m.disk.Stats()
	}
	return stats
}

// Close stops the sweeper, waits for pending writes and saves the disk index.
func (m *Manager) Close() error {
	close(m.stop)
	m.wg.Wait()

	for level, s := range m.Stats() {
		log.Debug("cache closed", "level", level, "stats", s.String())
	}
	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("unable to save disk cache index: %w", err)
		}
	}
	return nil
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep drops items older than the configured TTL.
func (m *Manager) Sweep() {
	if m.config.TTL <= 0 {
		return
	}

	pruned := m.memory.Prune(m.config.TTL)
	if m.disk != nil {
		pruned += m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	}

	m.mu.Lock()
	m.sweeps++
	m.mu.Unlock()

	if pruned > 0 {
		log.Debug("cache sweep", "removed", pruned)
	}
}

// Key derives a cache key from everything that changes the synthesized audio.
func Key(engine, text, voice string, rate, pitch float64) string {
	data := fmt.Sprintf("%s|%s|%s|%.2f|%.2f", engine, voice, text, rate, pitch)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:16])
}
