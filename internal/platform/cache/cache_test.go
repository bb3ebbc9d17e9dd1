package cache

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:59999"})
	defer client.Close()

	tests := []struct {
		prefix string
		want   string
	}{
		{"", "webhook:charge.success:1"},
		{"study", "study:webhook:charge.success:1"},
	}

	for _, tt := range tests {
		c := NewWithClient(client, tt.prefix)
		if got := c.Key("webhook:charge.success:1"); got != tt.want {
			t.Errorf("Key() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999", "study")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
