package shared

import (
	"strings"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	defer func() { getRuntime = original }()

	tc := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "rundll32",
	}

	for goos, want := range tc {
		t.Run(goos, func(t *testing.T) {
			getRuntime = func() string { return goos }
			cmd, err := browserCommand("http://localhost/auth")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.HasSuffix(cmd.Path, want) && cmd.Args[0] != want {
				t.Errorf("expected %s, got %v", want, cmd.Args)
			}
			if cmd.Args[len(cmd.Args)-1] != "http://localhost/auth" {
				t.Errorf("expected url as last argument, got %v", cmd.Args)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if _, err := browserCommand("http://localhost"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
