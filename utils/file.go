package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ProofStore persists uploaded proof files and returns a URL for them.
type ProofStore interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// AllowedProofTypes maps accepted upload extensions to their content type.
var AllowedProofTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".pdf":  "application/pdf",
}

// ProofKey builds the object key for a member's upload, e.g.
// "proofs/<user>/<uuid>.png". It rejects unsupported extensions.
func ProofKey(userID, filename string) (key, contentType string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := AllowedProofTypes[ext]
	if !ok {
		return "", "", fmt.Errorf("unsupported proof file type %q", ext)
	}
	user := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("proofs/%s/%s%s", user, uuid.NewString(), ext), contentType, nil
}

// LocalStore writes proofs under Dir and serves them from BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	destPath := filepath.Join(s.Dir, filepath.FromSlash(key))
	if !strings.HasPrefix(destPath, filepath.Clean(s.Dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	// ✅ Ensure the directory for the destination file exists
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return "", err
	}
	return s.BaseURL + "/" + key, nil
}
