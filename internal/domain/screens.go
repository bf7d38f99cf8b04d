package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

// ScreenList is the set of screen paths assigned to a role. Paths are unique
// and keep insertion order. Values are immutable; every mutation returns a new
// list with the next version.
type ScreenList struct {
	paths   []string
	version uint64
}

// NewScreenList builds a list from paths, dropping blanks and repeats.
func NewScreenList(paths ...string) ScreenList {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return ScreenList{paths: out}
}

func (l ScreenList) Paths() []string {
	return slices.Clone(l.paths)
}

func (l ScreenList) Len() int { return len(l.paths) }

func (l ScreenList) Version() uint64 { return l.version }

func (l ScreenList) Contains(path string) bool {
	return slices.Contains(l.paths, strings.TrimSpace(path))
}

// Equal compares paths only.
func (l ScreenList) Equal(other ScreenList) bool {
	return slices.Equal(l.paths, other.paths)
}

func (l ScreenList) next(paths []string) ScreenList {
	return ScreenList{paths: paths, version: l.version + 1}
}

// With appends path. It fails with ErrDuplicateScreen when path is present.
func (l ScreenList) With(path string) (ScreenList, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return l, ErrInvalidInput
	}
	if l.Contains(path) {
		return l, ErrDuplicateScreen
	}
	paths := append(slices.Clone(l.paths), path)
	return l.next(paths), nil
}

// Replace maps oldPath to newPath in place.
func (l ScreenList) Replace(oldPath, newPath string) (ScreenList, error) {
	oldPath, newPath = strings.TrimSpace(oldPath), strings.TrimSpace(newPath)
	if oldPath == "" || newPath == "" {
		return l, ErrInvalidInput
	}
	idx := slices.Index(l.paths, oldPath)
	if idx < 0 {
		return l, ErrScreenNotAssigned
	}
	if oldPath != newPath && l.Contains(newPath) {
		return l, ErrDuplicateScreen
	}
	paths := slices.Clone(l.paths)
	paths[idx] = newPath
	return l.next(paths), nil
}

// Without removes path.
func (l ScreenList) Without(path string) (ScreenList, error) {
	path = strings.TrimSpace(path)
	idx := slices.Index(l.paths, path)
	if idx < 0 {
		return l, ErrScreenNotAssigned
	}
	paths := slices.Delete(slices.Clone(l.paths), idx, idx+1)
	return l.next(paths), nil
}

func (l ScreenList) MarshalJSON() ([]byte, error) {
	if l.paths == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.paths)
}

func (l *ScreenList) UnmarshalJSON(data []byte) error {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return err
	}
	*l = NewScreenList(paths...)
	return nil
}

// ScreenAssignment is the full-list payload written to the screens endpoint.
// OldPath and NewPath are only set for updates.
type ScreenAssignment struct {
	RoleID  string     `json:"role_id"`
	AppID   string     `json:"app_id"`
	Screens ScreenList `json:"screens"`
	OldPath string     `json:"old_path,omitempty"`
	NewPath string     `json:"new_path,omitempty"`
}
