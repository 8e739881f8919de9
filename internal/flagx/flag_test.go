package flagx

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "keeps allowed flag with separate value",
			args:    []string{"-a", ":8080", "-x", "noise"},
			allowed: []string{"-a"},
			want:    []string{"-a", ":8080"},
		},
		{
			name:    "keeps allowed flag in equals form",
			args:    []string{"-d=postgres://dsn", "--other=1"},
			allowed: []string{"-d"},
			want:    []string{"-d=postgres://dsn"},
		},
		{
			name:    "drops everything when nothing allowed",
			args:    []string{"-a", "1", "-b", "2"},
			allowed: []string{},
			want:    []string{},
		},
		{
			name:    "flag followed by another flag keeps only the flag",
			args:    []string{"-a", "-b", "x"},
			allowed: []string{"-a"},
			want:    []string{"-a"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("FilterArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-config", "/etc/credvault.json", "-a", ":9000"}
	if got := JsonConfigFlags(); got != "/etc/credvault.json" {
		t.Fatalf("got %q", got)
	}

	os.Args = []string{"testbin", "-a", ":9000"}
	if got := JsonConfigFlags(); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
