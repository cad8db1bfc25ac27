// Package intake materializes uploaded files into per-request scratch
// directories and cleans those directories up.
package intake

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsearch/internal/adapter/fs"
)

var (
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	ErrTooManyFiles = errors.New("too many files in one upload")
	ErrInvalidName  = errors.New("invalid file name")
)

// Limits bounds a single upload.
type Limits struct {
	MaxFileSize int64
	MaxFiles    int
	Accept      []string // doublestar patterns on the base name
}

// Intake creates scratch directories under a root upload directory.
type Intake struct {
	root   string
	limits Limits
	walker *fs.Walker
	now    func() time.Time
}

func New(root string, limits Limits) *Intake {
	return &Intake{
		root:   root,
		limits: limits,
		walker: fs.NewWalker(limits.Accept, nil),
		now:    time.Now,
	}
}

// Root returns the upload directory.
func (in *Intake) Root() string {
	return in.root
}

// NewScratch creates a fresh directory named <unix-nanos>-<uuid> under the
// upload root. The caller must Close it.
func (in *Intake) NewScratch() (*Scratch, error) {
	if err := os.MkdirAll(in.root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s", in.now().UnixNano(), uuid.New().String())
	dir := filepath.Join(in.root, name)
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	return &Scratch{
		Dir:    dir,
		limits: in.limits,
		walker: in.walker,
	}, nil
}

// Scratch is one request's upload directory.
type Scratch struct {
	Dir string

	// Skipped lists uploads rejected by the accept patterns.
	Skipped []string

	limits Limits
	walker *fs.Walker
	saved  int
}

// Save writes r to a regular file in the scratch directory under the base
// component of name. It returns false without error when name is rejected by
// the accept patterns.
func (s *Scratch) Save(name string, r io.Reader) (bool, error) {
	base, err := sanitizeName(name)
	if err != nil {
		return false, err
	}

	if !s.walker.Accepts(base) {
		s.Skipped = append(s.Skipped, base)
		return false, nil
	}

	if s.limits.MaxFiles > 0 && s.saved >= s.limits.MaxFiles {
		return false, fmt.Errorf("%w: limit is %d", ErrTooManyFiles, s.limits.MaxFiles)
	}

	f, path, err := s.create(base)
	if err != nil {
		return false, err
	}

	src := r
	if s.limits.MaxFileSize > 0 {
		src = io.LimitReader(r, s.limits.MaxFileSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return false, fmt.Errorf("failed to save %s: %w", base, err)
	}
	if s.limits.MaxFileSize > 0 && n > s.limits.MaxFileSize {
		os.Remove(path)
		return false, fmt.Errorf("%w: %s is larger than %d bytes", ErrFileTooLarge, base, s.limits.MaxFileSize)
	}

	s.saved++
	return true, nil
}

// Saved returns how many files were written.
func (s *Scratch) Saved() int {
	return s.saved
}

// Close removes the scratch directory and everything in it.
func (s *Scratch) Close() error {
	return os.RemoveAll(s.Dir)
}

// create opens base exclusively, numbering the name when two uploads collide.
func (s *Scratch) create(base string) (*os.File, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for i := 1; ; i++ {
		path := filepath.Join(s.Dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) || i > 1000 {
			return nil, "", fmt.Errorf("failed to create %s: %w", candidate, err)
		}
		candidate = stem + " (" + strconv.Itoa(i) + ")" + ext
	}
}

func sanitizeName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// scratchCreated parses the creation time out of a scratch directory name.
func scratchCreated(name string) (time.Time, bool) {
	nanos, id, ok := strings.Cut(name, "-")
	if !ok {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}
