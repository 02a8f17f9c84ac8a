package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now().UTC() }
)

// Location values for new document placement.
const (
	LocationRoot    = "root"
	LocationCurrent = "current"
	LocationFolder  = "folder"
)

// Vault is a directory of markdown documents addressed by slash-separated
// paths relative to Root. Dot-directories (settings, logs) are not part of it.
type Vault struct {
	Root     string
	onChange []func(path string)
}

type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// Open opens a vault rooted at root. It does not create anything until Init is called.
func Open(root string) (*Vault, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: vault root is required", ErrInvalid)
	}
	return &Vault{Root: expandHome(root)}, nil
}

func (v *Vault) Init() error {
	return os.MkdirAll(v.Root, 0o755)
}

// OnChange registers fn to be called after every successful write or create.
func (v *Vault) OnChange(fn func(path string)) {
	v.onChange = append(v.onChange, fn)
}

func (v *Vault) notify(p string) {
	for _, fn := range v.onChange {
		fn(p)
	}
}

// Abs resolves a vault path to a filesystem path, rejecting escapes.
func (v *Vault) Abs(p string) (string, error) {
	clean, err := cleanVaultPath(p)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return v.Root, nil
	}
	return filepath.Join(v.Root, filepath.FromSlash(clean)), nil
}

// Rel converts a filesystem path inside the vault back to a vault path.
func (v *Vault) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(v.Root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func cleanVaultPath(p string) (string, error) {
	p = strings.TrimSpace(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", nil
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: path %q escapes the vault", ErrInvalid, p)
	}
	return clean, nil
}

func (v *Vault) Read(p string) (string, error) {
	abs, err := v.Abs(p)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return "", err
	}
	return string(b), nil
}

func (v *Vault) Stat(p string) (FileInfo, error) {
	abs, err := v.Abs(p)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return FileInfo{}, err
	}
	clean, _ := cleanVaultPath(p)
	return FileInfo{Path: clean, Size: info.Size(), ModTime: info.ModTime().UTC(), IsDir: info.IsDir()}, nil
}

func (v *Vault) IsFolder(p string) bool {
	info, err := v.Stat(p)
	return err == nil && info.IsDir
}

// Modify replaces the content of an existing document.
func (v *Vault) Modify(p string, content string) error {
	info, err := v.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir {
		return fmt.Errorf("%w: %s is a folder", ErrInvalid, p)
	}
	abs, _ := v.Abs(p)
	if err := atomicWriteFile(abs, []byte(content), 0o644); err != nil {
		return err
	}
	v.notify(info.Path)
	return nil
}

// Write creates or replaces a document.
func (v *Vault) Write(p string, content string) error {
	clean, err := cleanVaultPath(p)
	if err != nil {
		return err
	}
	if clean == "" {
		return fmt.Errorf("%w: document path is required", ErrInvalid)
	}
	abs, _ := v.Abs(clean)
	if err := atomicWriteFile(abs, []byte(content), 0o644); err != nil {
		return err
	}
	v.notify(clean)
	return nil
}

// Create makes a new empty document named baseName inside folder. When the
// name is taken a numeric suffix is appended ("Untitled 1.md", "Untitled 2.md").
func (v *Vault) Create(folder string, baseName string) (string, error) {
	baseName = strings.TrimSpace(baseName)
	if baseName == "" || strings.ContainsAny(baseName, `/\`) {
		return "", fmt.Errorf("%w: document name %q", ErrInvalid, baseName)
	}
	dir, err := cleanVaultPath(folder)
	if err != nil {
		return "", err
	}
	if dir != "" && !v.IsFolder(dir) {
		return "", fmt.Errorf("%w: folder %s", ErrNotFound, dir)
	}
	for i := 0; i < 1000; i++ {
		name := baseName
		if i > 0 {
			name = fmt.Sprintf("%s %d", baseName, i)
		}
		p := path.Join(dir, name+".md")
		abs, _ := v.Abs(p)
		f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		v.notify(p)
		return p, nil
	}
	return "", fmt.Errorf("%w: no free name for %q in %q", ErrConflict, baseName, dir)
}

// NewFileParent picks the folder a new document should be created in.
func (v *Vault) NewFileParent(sourcePath string, location string, folder string) string {
	switch strings.ToLower(strings.TrimSpace(location)) {
	case LocationCurrent:
		if strings.TrimSpace(sourcePath) == "" {
			return ""
		}
		dir := path.Dir(strings.TrimPrefix(filepath.ToSlash(sourcePath), "/"))
		if dir == "." {
			return ""
		}
		return dir
	case LocationFolder:
		clean, err := cleanVaultPath(folder)
		if err != nil || (clean != "" && !v.IsFolder(clean)) {
			return ""
		}
		return clean
	default:
		return ""
	}
}

// List returns every markdown document in the vault, sorted.
func (v *Vault) List() ([]string, error) {
	var out []string
	err := v.walk(func(rel string, d fs.DirEntry) {
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			out = append(out, rel)
		}
	})
	sort.Strings(out)
	return out, err
}

// Folders returns every folder in the vault, sorted. The root is not included.
func (v *Vault) Folders() ([]string, error) {
	var out []string
	err := v.walk(func(rel string, d fs.DirEntry) {
		if d.IsDir() {
			out = append(out, rel)
		}
	})
	sort.Strings(out)
	return out, err
}

func (v *Vault) walk(visit func(rel string, d fs.DirEntry)) error {
	err := filepath.WalkDir(v.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d == nil {
			return nil
		}
		if p == v.Root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, ok := v.Rel(p)
		if !ok {
			return nil
		}
		visit(rel, d)
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int, ascii bool) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	if ascii {
		return string(r[:n-2]) + ".."
	}
	// unicode ellipsis
	return string(r[:n-1]) + "…"
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~"+string(os.PathSeparator)) || p == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func atomicWriteFile(p string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".tmp-"+newULID())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
