// Package storage defines the file-system abstraction used for prompt
// addenda and session photos.
package storage

import "time"

// FileInfo describes one stored Markdown file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for stored file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
