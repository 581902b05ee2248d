package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"toolhub/server/toolhub/domain"
)

// Entry is one named payload destined for an archive. Entries keep their
// caller-given order and names; duplicate names are the caller's problem.
type Entry struct {
	Name    string
	Content []byte
}

// Build compresses the entries into a single zip buffer at maximum
// compression. Either the complete archive is returned or an error is;
// callers never see a partially written buffer.
func Build(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, entry := range entries {
		f, err := w.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: create entry %s: %v", domain.ErrArchive, entry.Name, err)
		}
		if _, err := f.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("%w: write entry %s: %v", domain.ErrArchive, entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize: %v", domain.ErrArchive, err)
	}
	return buf.Bytes(), nil
}
