// Package archive bundles named blobs into one downloadable file.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// Entry is one named payload.
type Entry struct {
	Name string
	Data []byte
}

// Packer is the archive collaborator.
type Packer interface {
	Pack(entries []Entry) ([]byte, error)
	Ext() string
	ContentType() string
}

// Zip packs entries into a zip file. Modified is stamped on every entry;
// the zero value leaves the zip default.
type Zip struct {
	Modified time.Time
}

func (z Zip) Ext() string         { return ".zip" }
func (z Zip) ContentType() string { return "application/zip" }

func (z Zip) Pack(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate archive entry %q", e.Name)
		}
		seen[e.Name] = true
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: z.Modified})
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", e.Name, err)
		}
		if _, err := io.Copy(w, bytes.NewReader(e.Data)); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip: %w", err)
	}
	return buf.Bytes(), nil
}
