package agent

import "testing"

func TestNormalizeCompanyName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Traders", "acme traders"},
		{"  Acme Traders  ", "acme traders"},
		{"acme   traders", "acme traders"},
		{"Acme\u00a0Traders", "acme traders"},
		{"ACME\tTRADERS", "acme traders"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeCompanyName(c.in); got != c.want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeCompanyName_Equality(t *testing.T) {
	// The receive-result comparison must treat these as the same company
	pairs := [][2]string{
		{"Acme Traders ", "acme   traders"},
		{"ACME TRADERS", "Acme Traders"},
		{"Acme\u00a0\u00a0Traders", "acme traders"},
	}
	for _, p := range pairs {
		if NormalizeCompanyName(p[0]) != NormalizeCompanyName(p[1]) {
			t.Errorf("Expected %q and %q to normalize equal", p[0], p[1])
		}
	}
}
