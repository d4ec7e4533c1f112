package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("CALENDAR_TZ", "")
	t.Setenv("HTTP_BASE_PATH", "/api/")
	t.Setenv("AI_TIMEOUT_SECONDS", "")
	t.Setenv("FETCH_AUTH_HEADER", "")
	t.Setenv("FETCH_ALLOWED_HOSTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.BasePath != "/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.HTTP.BasePath)
	}
	if cfg.Calendar.Timezone != "America/New_York" || cfg.Calendar.HorizonMonths != 3 {
		t.Fatalf("unexpected calendar config: %+v", cfg.Calendar)
	}
	if cfg.AI.Timeout != 60*time.Second {
		t.Fatalf("expected 60s AI timeout, got %v", cfg.AI.Timeout)
	}
	if !cfg.Auth.Enabled {
		t.Fatal("auth should default to enabled")
	}
	if len(cfg.Fetch.AllowedHosts) != 0 {
		t.Fatalf("expected no host allow-list, got %v", cfg.Fetch.AllowedHosts)
	}
}

func TestLoadFetchAllowList(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "filestore")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("CALENDAR_TZ", "")
	t.Setenv("FETCH_AUTH_HEADER", "Bearer storage-key")
	t.Setenv("FETCH_ALLOWED_HOSTS", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a fetch credential without allowed hosts")
	}

	t.Setenv("FETCH_ALLOWED_HOSTS", " Files.Example.edu, .storage.example ,,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"files.example.edu", ".storage.example"}
	if len(cfg.Fetch.AllowedHosts) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Fetch.AllowedHosts)
	}
	for i := range want {
		if cfg.Fetch.AllowedHosts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.Fetch.AllowedHosts)
		}
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage type")
	}

	t.Setenv("STORAGE_TYPE", "filestore")
	t.Setenv("AI_PROVIDER", "llama")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown AI provider")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "filestore")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("CALENDAR_TZ", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestBuildProdID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cfg  ICSConfig
		want string
	}{
		{ICSConfig{CompanyName: "SyllabAI", ProductName: "Calendar", Language: "EN"}, "-//SyllabAI//Calendar//EN"},
		{ICSConfig{CompanyName: "SyllabAI", ProductName: "Calendar", Version: "1.2", Language: "DE"}, "-//SyllabAI//Calendar 1.2//DE"},
		{ICSConfig{CompanyName: "SyllabAI", ProductName: "Calendar"}, "-//SyllabAI//Calendar//EN"},
	}
	for _, c := range cases {
		if got := c.cfg.BuildProdID(); got != c.want {
			t.Fatalf("BuildProdID() = %q, want %q", got, c.want)
		}
	}
}
