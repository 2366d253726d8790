package hdock

import (
	"os"
	"path/filepath"
	"strings"
)

// ClassifyLigand decides how a raw ligand field reaches the service.
// Policy, in order: a value starting with a FASTA header marker is sequence
// text even if a file of that name exists; otherwise an existing readable
// file is a file upload; anything else is treated as sequence text and any
// resulting failure surfaces at submission time, not here.
func ClassifyLigand(raw string) Ligand {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, ">") {
		return Ligand{Kind: LigandSequence, Sequence: trimmed}
	}
	if path, ok := resolveFile(trimmed); ok {
		return Ligand{Kind: LigandFilePath, Path: path}
	}
	return Ligand{Kind: LigandSequence, Sequence: trimmed}
}

// resolveFile expands a leading ~ and reports whether the value names an
// existing regular file.
func resolveFile(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	path := ExpandUser(value)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	_ = f.Close()
	return path, true
}

// ExpandUser rewrites a leading "~" to the current user's home directory.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
