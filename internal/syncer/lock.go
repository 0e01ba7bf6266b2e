package syncer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"telcosync/internal/providers"
	"telcosync/internal/textutil"
)

// LockPath returns the lock file guarding one (provider, resource) unit.
func LockPath(dir, provider string, kind providers.Kind) string {
	name := fmt.Sprintf("telcosync-%s-%s.lock", textutil.SanitizeToken(provider), textutil.SanitizeToken(string(kind)))
	return filepath.Join(dir, name)
}

// acquire takes the unit lock without blocking. A nil lock with a nil error
// means another process holds it.
func acquire(dir, provider string, kind providers.Kind) (*flock.Flock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(LockPath(dir, provider, kind))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}
