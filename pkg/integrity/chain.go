package integrity

import (
	"sort"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

// BrokenLink describes a chain entry whose previous_run_id does not match
// the id of its chronological predecessor.
type BrokenLink struct {
	EntryID    string `json:"entry_id"`
	Position   int    `json:"position"`
	ExpectedID string `json:"expected_previous_run_id"`
	ActualID   string `json:"actual_previous_run_id"`
}

// IntegrityReport is the result of verifying a case's history chain.
type IntegrityReport struct {
	IsValid         bool         `json:"is_valid"`
	BrokenLinks     []BrokenLink `json:"broken_links"`
	OrphanedEntries []string     `json:"orphaned_entries"`
	TotalEntries    int          `json:"total_entries"`
	VerifiedEntries int          `json:"verified_entries"`
}

// DuplicateGroup lists the entries sharing one input hash.
type DuplicateGroup struct {
	InputHash string   `json:"input_hash"`
	EntryIDs  []string `json:"entry_ids"`
	Count     int      `json:"count"`
}

// DuplicateAnalysis surfaces recomputes on unchanged inputs. Duplicates
// are normal operation, not a defect; reviewers see them in exports.
type DuplicateAnalysis struct {
	TotalEntries    int              `json:"total_entries"`
	UniqueHashes    int              `json:"unique_hashes"`
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
}

// VerifyChain checks the append-only linkage of a case's history,
// ordered oldest-first by computed_at:
//
//   - entry[0].previous_run_id must be empty
//   - entry[i].previous_run_id == entry[i-1].id for i >= 1
//   - any previous_run_id not present in the history is an orphan
func VerifyChain(entries []*contracts.IntelligenceEntry) IntegrityReport {
	ordered := sortedByComputedAt(entries)

	report := IntegrityReport{
		IsValid:         true,
		BrokenLinks:     []BrokenLink{},
		OrphanedEntries: []string{},
		TotalEntries:    len(ordered),
	}
	if len(ordered) == 0 {
		return report
	}

	known := make(map[string]bool, len(ordered))
	for _, e := range ordered {
		known[e.ID] = true
	}

	for i, e := range ordered {
		expected := ""
		if i > 0 {
			expected = ordered[i-1].ID
		}
		if e.PreviousRunID != expected {
			report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
				EntryID:    e.ID,
				Position:   i,
				ExpectedID: expected,
				ActualID:   e.PreviousRunID,
			})
			if e.PreviousRunID != "" && !known[e.PreviousRunID] {
				report.OrphanedEntries = append(report.OrphanedEntries, e.ID)
			}
			continue
		}
		report.VerifiedEntries++
	}

	report.IsValid = len(report.BrokenLinks) == 0
	return report
}

// AnalyzeDuplicates groups history entries by input hash and reports any
// hash appearing more than once.
func AnalyzeDuplicates(entries []*contracts.IntelligenceEntry) DuplicateAnalysis {
	ordered := sortedByComputedAt(entries)

	byHash := make(map[string][]string)
	var hashOrder []string
	for _, e := range ordered {
		if _, seen := byHash[e.InputHash]; !seen {
			hashOrder = append(hashOrder, e.InputHash)
		}
		byHash[e.InputHash] = append(byHash[e.InputHash], e.ID)
	}

	analysis := DuplicateAnalysis{
		TotalEntries:    len(ordered),
		UniqueHashes:    len(byHash),
		DuplicateGroups: []DuplicateGroup{},
	}
	for _, h := range hashOrder {
		ids := byHash[h]
		if len(ids) > 1 {
			analysis.DuplicateGroups = append(analysis.DuplicateGroups, DuplicateGroup{
				InputHash: h,
				EntryIDs:  ids,
				Count:     len(ids),
			})
		}
	}
	return analysis
}

func sortedByComputedAt(entries []*contracts.IntelligenceEntry) []*contracts.IntelligenceEntry {
	ordered := make([]*contracts.IntelligenceEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ComputedAt.Before(ordered[j].ComputedAt)
	})
	return ordered
}
