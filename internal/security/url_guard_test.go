package security

import (
	"testing"
)

func TestURLGuard_ValidateURL_Allowed(t *testing.T) {
	g := NewURLGuard()
	urls := []string{
		"https://cdn.example.com/avatar.png",
		"http://example.com/a.jpg",
		"https://8.8.8.8/a.png",
		"HTTPS://Example.com/x",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) returned error: %v", u, err)
		}
	}
}

func TestURLGuard_ValidateURL_Blocked(t *testing.T) {
	g := NewURLGuard()
	urls := []string{
		"",
		"avatar.png",
		"/relative/path.png",
		"ftp://example.com/a.png",
		"javascript:alert(1)",
		"data:image/png;base64,AAAA",
		"http://localhost/a.png",
		"http://api.localhost/a.png",
		"http://127.0.0.1/a.png",
		"http://10.0.0.5/a.png",
		"http://172.16.1.1/a.png",
		"http://192.168.1.10/a.png",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/",
		"http://[::1]/a.png",
		"http://[fd00::1]/a.png",
		"http://%zz",
	}
	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) expected error, got nil", u)
		}
	}
}
