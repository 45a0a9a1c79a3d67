package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/acoeffic/readon/internal/system"
)

// GeneratePropsPath creates a timestamped props filename in dir.
func GeneratePropsPath(dir, id string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", id, timestamp))
}

// FindLatestProps finds the most recent props document in dir.
func FindLatestProps(dir string) (string, error) {
	path, err := system.FindLatest(dir, ".yaml", ".yml")
	if err != nil {
		return "", fmt.Errorf("no props documents: %w", err)
	}
	return path, nil
}
