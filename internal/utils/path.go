package utils

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// PathResolver finds the data directory holding the index files.
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver resolves the executable location. configDir may be empty.
func NewPathResolver(configDir string) (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}
	pr := &PathResolver{executableDir: filepath.Dir(execPath), configDir: configDir}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, configDir)
	return pr, nil
}

// GetDataDir resolves the data directory containing marker (usually the
// aliases file). It tries, in order:
// 1. User-specified path (if absolute)
// 2. Relative to the current working directory
// 3. Relative to the executable directory
// 4. data/ next to the executable, its parent, and the config dir
//
// When nothing matches, the first candidate is returned for error reporting.
func (pr *PathResolver) GetDataDir(userSpecifiedPath, marker string) string {
	candidates := pr.dataDirCandidates(userSpecifiedPath)
	for _, path := range candidates {
		if isValidDataDir(path, marker) {
			log.Debugf("Found valid data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return candidates[0]
}

func (pr *PathResolver) dataDirCandidates(userSpecifiedPath string) []string {
	if filepath.IsAbs(userSpecifiedPath) {
		return []string{userSpecifiedPath}
	}
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userSpecifiedPath))
	}
	candidates = append(candidates,
		filepath.Join(pr.executableDir, userSpecifiedPath),
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
	)
	if pr.configDir != "" {
		candidates = append(candidates, filepath.Join(pr.configDir, "data"))
	}
	return candidates
}

func isValidDataDir(path, marker string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	if marker == "" || filepath.IsAbs(marker) {
		return true
	}
	return FileExists(filepath.Join(path, marker))
}
