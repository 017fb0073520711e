// Package images stores pasted and inserted images next to the notes that
// reference them.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/quire/pkg/core"
)

// MaxSize is the largest image accepted by Store.SaveImage.
const MaxSize = 32 << 20

// ErrTooLarge is returned for images over MaxSize.
var ErrTooLarge = fmt.Errorf("image larger than %d bytes", MaxSize)

var allowedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// Store writes images under <root>/<noteID>/ using content hashes as names,
// so saving the same image twice yields the same src.
type Store struct {
	root   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store rooted at root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{root: root, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory images are written to.
func (s *Store) Root() string {
	return s.root
}

// SaveImage implements core.ImageStore. The returned src is relative to the root.
func (s *Store) SaveImage(ctx context.Context, noteID, name string, r io.Reader) (string, error) {
	if noteID == "" || strings.ContainsAny(noteID, `/\`) || strings.HasPrefix(noteID, ".") {
		return "", fmt.Errorf("%w: bad note id %q", core.ErrInvalidNote, noteID)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExt[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file := strconv.FormatUint(xxhash.Sum64(data), 16) + ext
	dir := filepath.Join(s.root, noteID)
	target := filepath.Join(dir, file)
	src := path.Join(noteID, file)

	if _, err := os.Stat(target); err == nil {
		s.logger.Debug("image already stored", "id", noteID, "src", src)
		return src, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", err
	}

	s.logger.Info("image stored", "id", noteID, "src", src, "bytes", len(data))
	return src, nil
}

// Resolver maps stored srcs to something a surface can load. Absolute URLs
// pass through; relative srcs are joined to BaseURL, or to the store root as
// a file:// URL when no base is set.
type Resolver struct {
	Root    string
	BaseURL string
}

// Resolve implements core.ImageResolver.
func (r Resolver) Resolve(src string) string {
	if src == "" {
		return ""
	}
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		return src
	}
	if r.BaseURL != "" {
		return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(src, "/")
	}
	abs, err := filepath.Abs(filepath.Join(r.Root, filepath.FromSlash(src)))
	if err != nil {
		return src
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

var _ core.ImageStore = (*Store)(nil)
var _ core.ImageResolver = Resolver{}
