// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// MaxTags bounds how many tags NormalizeTags keeps.
const MaxTags = 10

// NormalizeTags lowercases, trims and slugs free-form tags, dropping empties
// and duplicates. Order is preserved and at most MaxTags survive.
//
//	NormalizeTags([]string{" Home Loan ", "home-loan", "", "Diwali"})
//	// []string{"home-loan", "diwali"}
func NormalizeTags(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, min(len(values), MaxTags))

	for _, v := range values {
		tag := strings.Join(strings.Fields(strings.ToLower(v)), "-")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
		if len(result) == MaxTags {
			break
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
