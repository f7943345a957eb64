package usecase

import (
	"strings"

	"helpdesk-bridge/internal/domain/ports/adapter"
)

// MatchUsers maps helpdesk operators to chat-service user ids.
// An operator matches a chat user on case-insensitive email equality,
// or, failing that, on normalised full name. The result is deduplicated
// preserving first-seen order; operators with no match are dropped.
func MatchUsers(operators []adapter.Operator, chatUsers []adapter.ChatUser) []string {
	byEmail := make(map[string]string, len(chatUsers))
	byName := make(map[string]string, len(chatUsers))
	for _, u := range chatUsers {
		if e := normalizeEmail(u.Email); e != "" {
			if _, ok := byEmail[e]; !ok {
				byEmail[e] = u.ID
			}
		}
		if n := normalizeName(u.Name); n != "" {
			if _, ok := byName[n]; !ok {
				byName[n] = u.ID
			}
		}
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, op := range operators {
		if id, ok := byEmail[normalizeEmail(op.Email)]; ok {
			add(id)
			continue
		}
		if id, ok := byName[normalizeName(op.Name)]; ok {
			add(id)
		}
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
