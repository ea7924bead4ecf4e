package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"taskminder/internal/models"
)

// Identity names the application for platform directory lookup.
type Identity struct {
	Namespace    string
	Organization string
	Application  string
}

// DefaultIdentity is the identity every build of the reminder shares.
func DefaultIdentity() Identity {
	return Identity{
		Namespace:    models.IdentityNamespace,
		Organization: models.IdentityOrganization,
		Application:  models.IdentityApplication,
	}
}

// Resolver maps the identity to the task file location.
type Resolver struct {
	identity  Identity
	dir       string
	fileName  string
	goos      string
	configDir func() (string, error)
}

// NewResolver builds a resolver. A non-empty overrideDir replaces the platform
// directory; an empty fileName means tasks.json.
func NewResolver(identity Identity, overrideDir, fileName string) *Resolver {
	if fileName == "" {
		fileName = models.TasksFileName
	}
	return &Resolver{
		identity:  identity,
		dir:       overrideDir,
		fileName:  fileName,
		goos:      runtime.GOOS,
		configDir: os.UserConfigDir,
	}
}

// Dir returns the directory holding the task file without creating it.
func (r *Resolver) Dir() (string, error) {
	if r.dir != "" {
		return filepath.Clean(r.dir), nil
	}

	base, err := r.configDir()
	if err != nil || base == "" {
		return "", newError("resolve", "", ErrNoStorageLocation, err)
	}
	return projectDir(r.goos, base, r.identity), nil
}

// Path returns the task file path, creating its parent directories.
func (r *Resolver) Path() (string, error) {
	return r.PathFor(r.fileName)
}

// PathFor returns a sibling file in the same directory, creating it if needed.
func (r *Resolver) PathFor(name string) (string, error) {
	dir, err := r.Dir()
	if err != nil {
		return "", err
	}
	// Failure here surfaces later as a read or write failure.
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, name), nil
}

func projectDir(goos, base string, id Identity) string {
	switch goos {
	case "windows":
		return filepath.Join(base, id.Organization, id.Application, "config")
	case "darwin", "ios":
		bundle := fmt.Sprintf("%s.%s.%s",
			id.Namespace,
			strings.ReplaceAll(id.Organization, " ", "-"),
			strings.ReplaceAll(id.Application, " ", "-"))
		return filepath.Join(base, bundle)
	default:
		return filepath.Join(base, strings.ToLower(strings.ReplaceAll(id.Application, " ", "")))
	}
}
