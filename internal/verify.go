package internal

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
)

// VerifyIssue describes one file whose on-disk content no longer matches
// its manifest record.
type VerifyIssue struct {
	Path    string // relative to the target root
	Problem string
}

// VerifyResult summarizes a verification pass over a library.
type VerifyResult struct {
	Checked    int
	Missing    int
	Mismatched int
	Issues     []VerifyIssue
}

// VerifyTree re-hashes every manifest-recorded file under target and
// reports records whose file is missing or whose digest has drifted.
// Digestless records (quarantined unreadable files) are not checked.
func VerifyTree(target string, logger *log.Logger) (VerifyResult, error) {
	store, err := NewStore(target, logger)
	if err != nil {
		return VerifyResult{}, err
	}

	folders := store.Folders()
	sort.Strings(folders)

	var res VerifyResult
	for _, folder := range folders {
		m := store.Folder(folder)

		names := make([]string, 0, len(m.Files))
		for name := range m.Files {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rec := m.Files[name]
			if rec.Sha256 == "" {
				continue
			}
			rel := filepath.Join(folder, name)
			res.Checked++

			digest, err := HashFile(filepath.Join(target, rel))
			if err != nil {
				res.Missing++
				problem := "missing"
				if !IsVanished(err) {
					problem = fmt.Sprintf("unreadable: %v", err)
				}
				res.Issues = append(res.Issues, VerifyIssue{Path: rel, Problem: problem})
				continue
			}
			if digest != rec.Sha256 {
				res.Mismatched++
				res.Issues = append(res.Issues, VerifyIssue{
					Path:    rel,
					Problem: fmt.Sprintf("digest mismatch: manifest %s, file %s", rec.Sha256[:8], digest[:8]),
				})
			}
		}
	}
	return res, nil
}
