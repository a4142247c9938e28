package repoctx

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// cloneDirPrefix names per-session clone targets.
const cloneDirPrefix = "cloned_repo"

// ErrUntrustedURL rejects clone sources outside github.com over https.
var ErrUntrustedURL = errors.New("only 'https://github.com/' URLs are allowed")

// CloneDir returns the per-session clone target directory.
func CloneDir(sessionID string) string {
	return fmt.Sprintf("%s_%s", cloneDirPrefix, sessionID)
}

// Clone clones url into the session's clone dir, replacing any previous
// clone for that session. Only https github URLs are accepted.
func Clone(url, sessionID string) (string, error) {
	if !strings.HasPrefix(url, "https://github.com/") {
		return "", ErrUntrustedURL
	}
	target := CloneDir(sessionID)
	Cleanup(sessionID)

	log.Printf("[repoctx] cloning %s...", url)
	cmd := exec.Command("git", "clone", url, target)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("git is not installed")
		}
		return "", fmt.Errorf("git clone failed: %s", strings.TrimSpace(string(out)))
	}
	return target, nil
}

// Cleanup removes the session's clone dir. Read-only files (git object
// store on some platforms) are chmod'ed writable first. Failures are
// logged, never fatal.
func Cleanup(sessionID string) {
	path := CloneDir(sessionID)
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			_ = os.Chmod(p, 0o600)
		}
		return nil
	})
	if err := os.RemoveAll(path); err != nil {
		log.Printf("[repoctx] cleanup warning: %v", err)
	}
}
