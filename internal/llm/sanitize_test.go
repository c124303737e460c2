package llm

import "testing"

func TestSanitizeErrorRedactsSecrets(t *testing.T) {
	in := "call failed: Authorization: Bearer sk-abcdefghijklmnop at /home/user/.config/app/secrets.json, password=hunter2"
	out := sanitizeError(in)
	for _, leak := range []string{"sk-abcdefghijklmnop", "hunter2", "/home/user/.config/app/secrets.json"} {
		if contains(out, leak) {
			t.Fatalf("sanitizeError leaked %q in %q", leak, out)
		}
	}
}

func TestSanitizeErrorTruncates(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	out := sanitizeError(string(long))
	if len(out) > maxSanitizedLen+1 {
		t.Fatalf("expected truncation, got len=%d", len(out))
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
