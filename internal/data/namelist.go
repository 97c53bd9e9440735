package data

import "strings"

// NameListSeparator joins the elements of a persisted NameList.
//
// Elements are not escaped. A name containing the separator would split into
// two names on the next read, so names are validated to never contain it.
const NameListSeparator = "|"

// NameList is a list of full names persisted as a single delimited string.
// Categories treat it as a set, navigation paths as an ordered sequence.
type NameList []string

// ParseNameList splits a persisted list. Empty segments are dropped.
func ParseNameList(s string) NameList {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, NameListSeparator)
	out := make(NameList, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// String returns the persisted form of the list.
func (l NameList) String() string {
	return strings.Join(l, NameListSeparator)
}

// Contains reports whether name is in the list.
func (l NameList) Contains(name string) bool {
	for _, n := range l {
		if n == name {
			return true
		}
	}
	return false
}

// Add appends name unless it is already present.
func (l NameList) Add(name string) NameList {
	if l.Contains(name) {
		return l
	}
	return append(l, name)
}

// Remove returns the list without any occurrence of name.
func (l NameList) Remove(name string) NameList {
	out := make(NameList, 0, len(l))
	for _, n := range l {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Replace renames every occurrence of oldName in place, keeping order.
// It reports whether anything changed.
func (l NameList) Replace(oldName, newName string) (NameList, bool) {
	changed := false
	out := make(NameList, 0, len(l))
	for _, n := range l {
		if n == oldName {
			n = newName
			changed = true
		}
		out = append(out, n)
	}
	return out, changed
}

// Dedup drops repeated names, keeping the first occurrence.
func (l NameList) Dedup() NameList {
	seen := make(map[string]bool, len(l))
	out := make(NameList, 0, len(l))
	for _, n := range l {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
