package ssrf

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.com/article", true},
		{"http://example.com:8443/x", true},
		{"ftp://example.com/x", false},
		{"http://127.0.0.1:6379/", false},
		{"http://localhost/", false},
		{"http://service.internal/", false},
		{"http://169.254.169.254/latest/meta-data/", false},
		{"http://10.0.0.5/", false},
		{"http://example.com:5432/", false},
		{"http://[::1]/", false},
		{"not a url", false},
	}
	for _, c := range cases {
		if got := Validate(c.url); got != c.want {
			t.Errorf("Validate(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestValidateLength(t *testing.T) {
	long := "https://example.com/" + string(make([]byte, 3000))
	if Validate(long) {
		t.Fatal("expected oversized URL to be rejected")
	}
}
