package logutil

import (
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "api key masked, other params kept",
			in:   "https://api.themoviedb.org/3/movie/popular?page=2&api_key=abc123",
			want: "https://api.themoviedb.org/3/movie/popular?api_key=[REDACTED]&page=2",
		},
		{
			name: "no query",
			in:   "http://localhost:3000/popular",
			want: "http://localhost:3000/popular",
		},
		{
			name: "dotted params survive",
			in:   "https://x.test/discover/movie?release_date.gte=2000-01-01",
			want: "https://x.test/discover/movie?release_date.gte=2000-01-01",
		},
		{
			name: "userinfo password dropped",
			in:   "https://user:pw@x.test/",
			want: "https://user@x.test/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactURL(tt.in); got != tt.want {
				t.Fatalf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactBodyForLog(t *testing.T) {
	t.Parallel()
	got := RedactBodyForLog([]byte(`{"status_message":"Invalid API key","api_key":"abc","nested":[{"token":"t"}]}`))
	if strings.Contains(got, "abc") || strings.Contains(got, `"t"`) {
		t.Fatalf("secrets leaked: %s", got)
	}
	if !strings.Contains(got, "Invalid API key") {
		t.Fatalf("non-sensitive fields lost: %s", got)
	}
	if got := RedactBodyForLog([]byte("<html>oops</html>")); got != "<html>oops</html>" {
		t.Fatalf("non-JSON body changed: %q", got)
	}
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()
	if got := TruncateForLog("  a\nb  ", 0); got != `a\nb` {
		t.Fatalf("TruncateForLog = %q", got)
	}
	if got := TruncateForLog("abcdef", 3); got != "abc... [truncated]" {
		t.Fatalf("TruncateForLog = %q", got)
	}
	if TruncateForLog("   ", 5) != "" {
		t.Fatal("blank input should collapse to empty")
	}
}
