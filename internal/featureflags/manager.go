// Package featureflags evaluates operator-controlled switches such as
// live_feed and api_docs.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Manager holds flags parsed from a comma-separated list, for example
// "live_feed=on,api_docs=off,live_feed_canary=25%". Each flag is stored as
// the share of signed-in users who get it: 100 for on, 0 for off.
type Manager struct {
	rollout map[string]int
}

// NewManager parses raw. Pairs without a name or value are skipped; a value
// that is not on/off or a percentage turns the flag off.
func NewManager(raw string) *Manager {
	rollout := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		rollout[name] = parsePercent(value)
	}
	return &Manager{rollout: rollout}
}

func parsePercent(value string) int {
	switch value {
	case "on", "true", "1":
		return 100
	case "off", "false", "0":
		return 0
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") {
		return 0
	}
	return min(max(pct, 0), 100)
}

// Enabled reports whether name is on for userID. Unlisted flags are off.
func (m *Manager) Enabled(name, userID string) bool {
	return m.EnabledOr(name, userID, false)
}

// EnabledOr is Enabled with def returned for unlisted flags. A partial
// rollout never includes anonymous visitors.
func (m *Manager) EnabledOr(name, userID string, def bool) bool {
	if m == nil {
		return def
	}
	pct, ok := m.rollout[normalize(name)]
	switch {
	case !ok:
		return def
	case pct >= 100:
		return true
	case pct <= 0 || userID == "":
		return false
	}
	return bucket(name, userID) < pct
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bucket places userID in [0, 100) for name, stable across restarts.
func bucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
