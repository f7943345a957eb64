package model

import (
	"net/url"
	"strings"

	"helpdesk-bridge/internal/domain"
)

// ChannelInfo identifies a chat channel and its user-facing URL.
type ChannelInfo struct {
	ChannelID string `json:"channel_id"`
	URL       string `json:"url"`
}

func isRawChannelID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ExtractChannelID resolves a stored chat-channel value to a channel id.
// Accepted forms: a chat-service URL (".../archives/{ID}/...") or a raw
// uppercase-alphanumeric channel id, which round-trips to itself.
func ExtractChannelID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if isRawChannelID(s) {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", &domain.InvalidInputError{Field: "channel_url", Detail: "not a URL or raw channel id"}
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg == "archives" && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1], nil
		}
	}
	return "", &domain.InvalidInputError{Field: "channel_url", Detail: "no archives segment in " + s}
}

// ExtractConversationID resolves a linked-conversation entry to the
// helpdesk conversation id: the last path segment when URL-shaped,
// the value verbatim otherwise.
func ExtractConversationID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		return s
	}
	trimmed := strings.TrimSuffix(s, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return s
	}
	return trimmed[idx+1:]
}
