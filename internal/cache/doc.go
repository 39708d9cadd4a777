// Package cache stores synthesized speech so repeated paragraphs play
// without another trip to the engine. Lookups go through a memory LRU
// first and fall back to a zstd compressed disk tier that survives
// restarts; expired disk entries are swept by a background goroutine.
package cache
