package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mfmodell/reduction"
)

// RecordPath is the record file of ℓ inside dir.
func RecordPath(dir string, ell uint64, tag string) string {
	return filepath.Join(dir, fmt.Sprintf("mod_%d_%s.txt", ell, tag))
}

// DeferredPath is the deferred-form file of ℓ inside dir.
func DeferredPath(dir string, ell uint64, tag string) string {
	return filepath.Join(dir, fmt.Sprintf("mod_%d_%s_missing.txt", ell, tag))
}

// WriteRecords writes one line per record.
func WriteRecords(w io.Writer, records []reduction.Record, maxAP int) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		line, err := FormatRecord(r, maxAP)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteDeferred writes one line per deferred form.
func WriteDeferred(w io.Writer, deferred []reduction.Deferred) error {
	bw := bufio.NewWriter(w)
	for _, d := range deferred {
		if _, err := bw.WriteString(FormatDeferred(d) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Files writes the per-ℓ output files of a sweep.
type Files struct {
	Dir   string
	Tag   string
	MaxAP int
	// Append adds to existing files instead of truncating them.
	Append bool
}

// Write stores records and deferred forms of one ℓ and returns the two
// paths written.
func (f Files) Write(ell uint64, records []reduction.Record, deferred []reduction.Deferred) (string, string, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("output: create %s: %w", f.Dir, err)
	}
	recPath := RecordPath(f.Dir, ell, f.Tag)
	if err := f.writeFile(recPath, func(w io.Writer) error { return WriteRecords(w, records, f.MaxAP) }); err != nil {
		return "", "", err
	}
	defPath := DeferredPath(f.Dir, ell, f.Tag)
	if err := f.writeFile(defPath, func(w io.Writer) error { return WriteDeferred(w, deferred) }); err != nil {
		return "", "", err
	}
	return recPath, defPath, nil
}

func (f Files) writeFile(path string, write func(io.Writer) error) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if f.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	fh, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", path, err)
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return fh.Close()
}

// ReadRecords parses a record file, skipping blank lines.
func ReadRecords(r io.Reader) ([]reduction.Record, error) {
	var out []reduction.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

// ReadRecordFile parses the record file at path.
func ReadRecordFile(path string) ([]reduction.Record, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadRecords(fh)
}
