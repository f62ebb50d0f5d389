package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/storage"
)

const sessionsManifestName = "sessions.json"

// CheckSessionOverflow stats the session manifest under the memory root and,
// if it exceeds thresholdBytes, renames it aside with an overflow-<iso>.bak
// suffix so a fresh manifest can be started without losing the old one.
func CheckSessionOverflow(thresholdBytes int64) (rotated bool, backupPath string, err error) {
	if thresholdBytes <= 0 {
		return false, "", nil
	}

	root, err := storage.Root()
	if err != nil {
		return false, "", err
	}
	manifestPath := filepath.Join(root, sessionsManifestName)

	info, statErr := os.Stat(manifestPath)
	if os.IsNotExist(statErr) {
		return false, "", nil
	}
	if statErr != nil {
		return false, "", domain.NewDomainError(domain.ErrCodeStoreFailure, "stat sessions manifest failed", statErr)
	}
	if info.Size() <= thresholdBytes {
		return false, "", nil
	}

	backupName := fmt.Sprintf("overflow-%s.bak", time.Now().UTC().Format(time.RFC3339))
	backupPath = filepath.Join(filepath.Dir(manifestPath), backupName)
	if err := os.Rename(manifestPath, backupPath); err != nil {
		return false, "", domain.NewDomainError(domain.ErrCodeStoreFailure, "rotate sessions manifest failed", err)
	}
	return true, backupPath, nil
}
