// Package lockfile implements l10npatch.lock, a lock file that records
// MD5 checksums of the default values l10npatch inserted per group, and
// of the artifact content it last wrote.
//
// Inserted entries are never rewritten, so the lock file is how status
// reports defaults that changed in the configuration after insertion,
// and edits made to the artifact by other tools since the last run.
//
// The lock file is stored alongside .l10npatch.yaml as l10npatch.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/l10npatch/artifact"
	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "l10npatch.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the l10npatch.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"`           // target -> key -> md5
	Artifacts map[string]string            `yaml:"artifacts,omitempty"` // artifact path -> md5

	path string
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		Artifacts: make(map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	if lf.Artifacts == nil {
		lf.Artifacts = make(map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	return artifact.WriteFile(lf.path, data, 0644)
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// GroupTarget builds the checksum target for one group of an artifact:
// "lib/utils/localization_helper.dart#hi".
func GroupTarget(artifactPath, lang string) string {
	return filepath.ToSlash(artifactPath) + "#" + lang
}

// EntryContent builds the content hashed for an inserted entry.
// The key is included so a renamed key never matches an old record.
func EntryContent(key, value string) string {
	return key + "\x00" + value
}

// Record stores the checksum of a default value inserted for key.
func (lf *LockFile) Record(target, key, value string) {
	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][key] = Hash(EntryContent(key, value))
}

// FilterStale returns the keys of entries (key -> current default) whose
// recorded checksum no longer matches, sorted.
func (lf *LockFile) FilterStale(target string, entries map[string]string) []string {

	existing := lf.Checksums[target]
	var stale []string
	for key, value := range entries {
		if old, ok := existing[key]; ok && old != Hash(EntryContent(key, value)) {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	return stale
}

// Clean removes records for keys that are no longer canonical.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, target)
	}
}

// ---------------------------------------------------------------------------
// Artifact checksums
// ---------------------------------------------------------------------------

// RecordArtifact stores the checksum of content as last written to path.
func (lf *LockFile) RecordArtifact(path, content string) {
	lf.Artifacts[filepath.ToSlash(path)] = Hash(content)
}

// ArtifactChanged compares content with the last recorded write of path.
// known is false when l10npatch never wrote path.
func (lf *LockFile) ArtifactChanged(path, content string) (changed, known bool) {
	old, ok := lf.Artifacts[filepath.ToSlash(path)]
	if !ok {
		return false, false
	}
	return old != Hash(content), true
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns sorted list of target keys.
func (lf *LockFile) Targets() []string {

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, len(lf.Checksums[t])))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
