package asset

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// ContentTypeGLB is the media type of binary glTF
	ContentTypeGLB = "model/gltf-binary"
	// ContentTypeGLTF is the media type of JSON glTF
	ContentTypeGLTF = "model/gltf+json"
)

// Asset is a file which can be handed to the viewer
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	URL         string    `json:"url"`
	Created     time.Time `json:"created"`
	data        []byte
}

// Data returns the raw file content
func (a *Asset) Data() []byte {
	return a.data
}

// Store keeps the asset currently handed to a viewer. Putting a new asset
// discards the previous one.
type Store struct {
	prefix  string
	current *Asset
	mutex   sync.RWMutex
}

// NewStore creates a store whose asset URLs start with prefix, e.g. "/assets"
func NewStore(prefix string) *Store {
	return &Store{prefix: strings.TrimSuffix(prefix, "/")}
}

// Create builds an asset with its URL without serving it yet
func (s *Store) Create(name, contentType string, data []byte) *Asset {
	name = SanitizeName(name)
	if contentType == "" {
		contentType = ContentTypeFor(name)
	}
	a := &Asset{
		ID:          newID(),
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		Created:     time.Now(),
		data:        data,
	}
	a.URL = s.prefix + "/" + a.ID + "/" + url.PathEscape(name)
	return a
}

// Replace makes a the current asset and discards the previous one
func (s *Store) Replace(a *Asset) {
	s.mutex.Lock()
	s.current = a
	s.mutex.Unlock()
}

// Get returns the asset with the given id if it is still the current one
func (s *Store) Get(id string) (*Asset, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.current == nil || s.current.ID != id {
		return nil, false
	}
	return s.current, true
}

// Current returns the current asset, or nil
func (s *Store) Current() *Asset {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.current
}

// SanitizeName strips directories and characters which are unsafe in file
// names and headers. An empty result becomes "output".
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "output"
	}
	return out
}

// GLBName returns the name of the converted asset for a source file, e.g.
// "chair.jpg" -> "chair.glb"
func GLBName(source string) string {
	name := SanitizeName(source)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "output"
	}
	return base + ".glb"
}

// ContentTypeFor guesses the media type from the file extension
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gltf":
		return ContentTypeGLTF
	default:
		return ContentTypeGLB
	}
}

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))
	}
	return hex.EncodeToString(buf)
}
