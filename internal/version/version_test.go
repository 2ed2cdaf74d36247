package version

import "testing"

func TestParseAndString(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1.21.0", "1.21.0"},
		{"01.2", "1.2"},
		{"1.0a1", "1.0a1"},
		{"1.0.alpha1", "1.0a1"},
		{"1.0.post1", "1.0.post1"},
		{"1.0.dev1", "1.0.dev1"},
		{"2!1.0", "2!1.0"},
		{"1.0+local.1", "1.0+local.1"},
	}
	for _, c := range cases {
		v, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c.in, err)
		}
		if got := v.String(); got != c.want {
			t.Errorf("Parse(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-a-version"); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestCompareOrdering(t *testing.T) {
	// Ascending order per PEP 440 §"Summary of permitted suffixes and
	// relative ordering".
	ordered := []string{
		"1.0.dev0",
		"1.0a1",
		"1.0a1.post1.dev0",
		"1.0a1.post1",
		"1.0b1.dev0",
		"1.0b1",
		"1.0rc1.dev0",
		"1.0rc1",
		"1.0",
		"1.0+local",
		"1.0.post1.dev0",
		"1.0.post1",
	}
	for i := 1; i < len(ordered); i++ {
		a := MustParse(ordered[i-1])
		b := MustParse(ordered[i])
		if !a.LessThan(b) {
			t.Errorf("expected %s < %s", ordered[i-1], ordered[i])
		}
	}
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"My_Package.Name": "my-package-name",
		"already-canon":   "already-canon",
		"Foo..Bar__Baz":   "foo-bar-baz",
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSortVersionsStatusBands(t *testing.T) {
	v := func(s string, st InstallStatus) *Version { return MustParse(s).WithStatus(st) }
	in := []*Version{
		v("1.22.0", StatusFail),
		v("1.20.0", StatusSuccess),
		v("1.21.0", StatusSuccess),
		v("1.23.0", StatusUnknown),
	}
	sorted := SortVersions(in)
	want := []string{"1.21.0", "1.20.0", "1.23.0", "1.22.0"}
	for i, w := range want {
		if sorted[i].Original() != w {
			t.Fatalf("position %d: got %s, want %s", i, sorted[i].Original(), w)
		}
	}
}
