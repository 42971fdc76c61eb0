// Package session implements the Session Manager: tool-specific session
// ID derivation from request payloads, in-memory aggregation of per-
// session counters, and a batched flush to the Stats Store.
package session

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/duckcoding/duckcoding/internal/tool"
)

var claudeSessionPattern = regexp.MustCompile(`session_([0-9a-fA-F-]{36})`)

// DeriveID implements §4.F's tool-dispatched session ID derivation. body
// is the raw request payload as sent by the client; clientIP and now are
// used only by the synthetic fallback.
func DeriveID(tid tool.ID, body []byte, clientIP string, now time.Time) (sessionID, displayID string) {
	switch tid {
	case tool.Claude:
		if id, disp, ok := deriveClaude(body); ok {
			return id, disp
		}
	case tool.Codex:
		if id, disp, ok := deriveCodex(body); ok {
			return id, disp
		}
	case tool.Gemini:
		if id, disp, ok := deriveGemini(body); ok {
			return id, disp
		}
	case tool.Amp:
		if id, disp, ok := deriveClaude(body); ok {
			return id, disp
		}
	}
	return synthetic(tid, clientIP, now)
}

func deriveClaude(body []byte) (sessionID, displayID string, ok bool) {
	var payload struct {
		Metadata struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Metadata.UserID == "" {
		return "", "", false
	}
	sessionID = payload.Metadata.UserID
	if m := claudeSessionPattern.FindStringSubmatch(sessionID); m != nil {
		displayID = m[1]
	} else {
		displayID = shortDisplay(sessionID)
	}
	return sessionID, displayID, true
}

func deriveCodex(body []byte) (sessionID, displayID string, ok bool) {
	var payload struct {
		PromptCacheKey string `json:"prompt_cache_key"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.PromptCacheKey == "" {
		return "", "", false
	}
	sessionID = payload.PromptCacheKey
	return sessionID, shortDisplay(sessionID), true
}

func deriveGemini(body []byte) (sessionID, displayID string, ok bool) {
	var payload struct {
		Model   string `json:"model"`
		CacheID string `json:"cacheId"`
		Contents []json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", false
	}
	if payload.Model != "" && payload.CacheID != "" {
		sessionID = payload.Model + "|" + payload.CacheID
		return sessionID, shortDisplay(sessionID), true
	}
	if len(payload.Contents) > 0 {
		sum := sha1.Sum(payload.Contents[0])
		sessionID = "fingerprint_" + hex.EncodeToString(sum[:])
		return sessionID, shortDisplay(sessionID), true
	}
	return "", "", false
}

func synthetic(tid tool.ID, clientIP string, now time.Time) (sessionID, displayID string) {
	raw := fmt.Sprintf("%s|%s|%s", tid, clientIP, now.UTC().Format("2006-01-02"))
	sum := sha1.Sum([]byte(raw))
	sessionID = hex.EncodeToString(sum[:])
	return sessionID, shortDisplay(sessionID)
}

func shortDisplay(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}
