// Package upload persists uploaded files into a content directory that is
// served read-only under URLPrefix.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads/"

// maxAttempts bounds the retries when a generated name already exists.
const maxAttempts = 5

// ErrWrite wraps every failure to persist an uploaded file.
var ErrWrite = errors.New("upload failed")

// File describes a stored upload.
type File struct {
	Name string // generated file name inside the directory
	Path string // filesystem path
	Ref  string // reference path for clients, URLPrefix + Name
	Size int64
	MIME string
}

// Disk writes uploads into Dir.
type Disk struct {
	Dir string
	now func() time.Time
}

// New returns a Disk for dir, creating the directory if needed.
func New(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload.New: create dir: %w", err)
	}
	return &Disk{Dir: dir, now: time.Now}, nil
}

// Save writes everything read from r under a name that combines the
// current time in nanoseconds with the base of original. Files are
// created exclusively, so two concurrent uploads can never share a name.
func (d *Disk) Save(original string, r io.Reader) (File, error) {
	base := baseName(original)

	var (
		f    *os.File
		name string
		err  error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name = fmt.Sprintf("%d-%s", d.clock().UnixNano(), base)
		f, err = os.OpenFile(filepath.Join(d.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: create %s: %w", ErrWrite, name, err)
	}

	path := f.Name()
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return File{}, fmt.Errorf("%w: write %s: %w", ErrWrite, name, err)
	}

	stored := File{
		Name: name,
		Path: path,
		Ref:  URLPrefix + name,
		Size: size,
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		stored.MIME = mt.String()
	}

	slog.Info("upload stored",
		slog.String("name", name),
		slog.Int64("bytes", size),
		slog.String("mime", stored.MIME),
	)
	return stored, nil
}

func (d *Disk) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// Remove deletes a stored file. Used to roll back an upload whose record
// could not be created.
func (d *Disk) Remove(f File) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload.Remove: %w", err)
	}
	return nil
}

// baseName strips any directory components a client put in the file name
// and replaces every byte outside [A-Za-z0-9._-] with '_'. The result is
// used verbatim both on disk and in the URL reference.
func baseName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	switch name {
	case ".", "..", "/", "":
		return "file"
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
