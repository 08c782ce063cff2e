// Package access resolves what a user may do with a document.
package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is an ordered permission level: None < Viewer < Editor < Owner.
type Level int

const (
	None Level = iota
	Viewer
	Editor
	Owner
)

var levelNames = [...]string{"none", "viewer", "editor", "owner"}

func (l Level) String() string {
	if l < None || l > Owner {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// AtLeast reports whether l grants at least min.
func (l Level) AtLeast(min Level) bool {
	return l >= min
}

// Grantable reports whether l can be stored on a collaborator or invitation.
// Owner is derived from ownership and never granted.
func (l Level) Grantable() bool {
	return l == Viewer || l == Editor
}

// ParseLevel parses a stored or user-supplied level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "viewer":
		return Viewer, nil
	case "editor":
		return Editor, nil
	case "owner":
		return Owner, nil
	}
	return None, fmt.Errorf("unknown permission level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}
