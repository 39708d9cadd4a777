package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the tier capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored item cannot be decoded.
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level identifies a cache tier.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Capacity  int64
	Size      int64
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s of %s, %.0f%% hits",
		s.Items, humanize.IBytes(uint64(s.Size)), humanize.IBytes(uint64(s.Capacity)), s.HitRate()*100)
}

// Entry describes one cached item.
type Entry struct {
	Key        string
	Size       int64
	Created    time.Time
	LastAccess time.Time
	Hits       int64
	Level      Level
}

// Config holds the sizes and locations of the tiers.
type Config struct {
	MemoryCapacity int64  // bytes
	DiskCapacity   int64  // bytes
	DiskPath       string // directory for cache files; empty disables the disk tier
	Compression    int    // zstd level, 0 stores raw

	TTL             time.Duration // age after which items expire, 0 keeps forever
	CleanupInterval time.Duration
}

// DefaultConfig returns 64MiB of memory and 512MiB of disk kept for a week.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:  64 << 20,
		DiskCapacity:    512 << 20,
		Compression:     3,
		TTL:             7 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}
