//go:build unit

package data

import (
	"reflect"
	"testing"
)

func TestParseNameList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want NameList
	}{
		{"empty", "", nil},
		{"single", "ns.Page", NameList{"ns.Page"}},
		{"several keep order", "b|a|c", NameList{"b", "a", "c"}},
		{"empty segments dropped", "|a||b|", NameList{"a", "b"}},
		{"only separators", "|||", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNameList(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNameList(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNameList_String(t *testing.T) {
	if s := NameList(nil).String(); s != "" {
		t.Errorf("expected empty string for nil list, got %q", s)
	}
	if s := (NameList{"one"}).String(); s != "one" {
		t.Errorf("expected 'one', got %q", s)
	}
	if s := (NameList{"a", "b"}).String(); s != "a|b" {
		t.Errorf("expected 'a|b', got %q", s)
	}
}

// A separator inside a name is not escaped: it splits on the next read.
// Store validation rejects such names before they reach a list.
func TestNameList_SeparatorInValueSplits(t *testing.T) {
	l := NameList{"a|b"}
	got := ParseNameList(l.String())
	if len(got) != 2 {
		t.Errorf("expected the unescaped separator to split the name, got %#v", got)
	}
}

func TestNameList_SetOperations(t *testing.T) {
	l := NameList{"a", "b"}

	l = l.Add("b")
	if len(l) != 2 {
		t.Errorf("Add of existing name should not duplicate, got %v", l)
	}
	l = l.Add("c")
	if !l.Contains("c") {
		t.Errorf("expected c to be added, got %v", l)
	}

	l = l.Remove("a")
	if l.Contains("a") || len(l) != 2 {
		t.Errorf("expected a to be removed, got %v", l)
	}

	replaced, changed := l.Replace("b", "z")
	if !changed || !reflect.DeepEqual(replaced, NameList{"z", "c"}) {
		t.Errorf("Replace gave %v (changed=%v)", replaced, changed)
	}
	_, changed = l.Replace("missing", "x")
	if changed {
		t.Error("Replace of a missing name should report no change")
	}

	if d := (NameList{"x", "y", "x"}).Dedup(); !reflect.DeepEqual(d, NameList{"x", "y"}) {
		t.Errorf("Dedup gave %v", d)
	}
}

func TestFullName(t *testing.T) {
	if got := FullName("", "Main"); got != "Main" {
		t.Errorf("root full name: got %q", got)
	}
	if got := FullName("ns1", "Main"); got != "ns1.Main" {
		t.Errorf("qualified full name: got %q", got)
	}
	ns, name := SplitFullName("ns1.Main")
	if ns != "ns1" || name != "Main" {
		t.Errorf("SplitFullName: got %q, %q", ns, name)
	}
	ns, name = SplitFullName("Main")
	if ns != "" || name != "Main" {
		t.Errorf("SplitFullName root: got %q, %q", ns, name)
	}
}
