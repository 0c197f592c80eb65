// Package mapping correlates git commits with tracker tickets: it extracts
// ticket keys from free text and keeps a persistent record of which commits
// were mapped to which tickets, including per-mapping sync state.
package mapping

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gitdocs/gitdocs/internal/log"
)

// DefaultPattern matches PROJ-123 style ticket keys.
const DefaultPattern = `\b([A-Z][A-Z0-9]+-\d+)\b`

// ExtractTicketKeys finds every ticket key referenced in text using the
// given patterns (DefaultPattern when none are supplied). Matching is
// case-insensitive; keys are normalized to uppercase, deduplicated and
// returned sorted. A pattern that fails to compile is skipped with a
// warning so the remaining patterns still apply.
func ExtractTicketKeys(logger *log.Logger, text string, patterns []string) []string {
	if logger == nil {
		logger = log.Discard()
	}
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}

	seen := make(map[string]struct{})

	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			logger.Warnf("invalid ticket pattern %q: %v", pattern, err)
			continue
		}

		for _, match := range re.FindAllStringSubmatch(text, -1) {
			key := match[0]
			if len(match) > 1 && match[1] != "" {
				key = match[1]
			}
			seen[strings.ToUpper(key)] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// FindRelatedTickets maps each ticket key found across messages to the
// indices of the messages that reference it.
func FindRelatedTickets(logger *log.Logger, messages []string, patterns []string) map[string][]int {
	related := make(map[string][]int)

	for i, message := range messages {
		for _, key := range ExtractTicketKeys(logger, message, patterns) {
			related[key] = append(related[key], i)
		}
	}

	return related
}

// TicketFromBranch extracts a ticket key from a branch name like
// feature/PROJ-123-description. Returns "" when the branch carries none.
func TicketFromBranch(logger *log.Logger, branch string, patterns []string) string {
	keys := ExtractTicketKeys(logger, branch, patterns)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
