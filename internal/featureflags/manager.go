// Package featureflags evaluates the FEATURE_FLAGS setting, a comma
// separated list such as "registration_closed=on,comments_closed=25%".
package featureflags

import (
	"encoding/binary"
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
)

// Flags understood by the site.
const (
	// RegistrationClosed makes the sign-up page answer 403.
	RegistrationClosed = "registration_closed"
	// CommentsClosed turns comment submission into a no-op redirect.
	CommentsClosed = "comments_closed"
)

// Known lists the flags reported by Statuses even when unset.
var Known = []string{RegistrationClosed, CommentsClosed}

// rule is a parsed setting: the share of users, 0 to 100, the flag is on
// for. Anything below 100 only applies to signed-in users.
type rule struct {
	setting string
	percent int
}

// Manager holds the parsed flags. The zero value and nil have every flag
// off.
type Manager struct {
	rules map[string]rule
}

func parseSetting(v string) (int, bool) {
	switch v {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	pct, ok := strings.CutSuffix(v, "%")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return 0, false
	}
	return min(max(n, 0), 100), true
}

// NewManager parses raw. Entries that are not name=setting pairs, or whose
// setting is neither on/off/true/false/1/0 nor N%, are ignored.
func NewManager(raw string) *Manager {
	m := &Manager{rules: map[string]rule{}}
	for _, entry := range strings.Split(raw, ",") {
		name, setting, ok := strings.Cut(entry, "=")
		name, setting = normalize(name), normalize(setting)
		if !ok || name == "" {
			continue
		}
		pct, ok := parseSetting(setting)
		if !ok {
			continue
		}
		m.rules[name] = rule{setting: setting, percent: pct}
	}
	return m
}

// Enabled reports whether flag name is on for userID. Partial rollouts
// put each user in a stable bucket per flag, so a user keeps the same
// answer across requests.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(normalize(name), userID) < r.percent
}

// Status is one flag as reported to staff.
type Status struct {
	Name    string `json:"name"`
	Setting string `json:"setting"`
	Enabled bool   `json:"enabled"`
}

// Statuses reports every known or configured flag and how it evaluates
// for userID, sorted by name. Unset flags have an empty Setting.
func (m *Manager) Statuses(userID uint) []Status {
	names := slices.Clone(Known)
	if m != nil {
		for name := range m.rules {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)

	out := make([]Status, 0, len(names))
	for _, name := range names {
		s := Status{Name: name, Enabled: m.Enabled(name, userID)}
		if m != nil {
			s.Setting = m.rules[name].setting
		}
		out = append(out, s)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(userID)))
	return int(h.Sum32() % 100)
}
