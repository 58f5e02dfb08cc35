package config

import (
	"os"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	t.Setenv("TEST_GETENV", "")
	if got := getenv("TEST_GETENV", "default"); got != "default" {
		t.Errorf("Expected default value 'default', got '%s'", got)
	}

	t.Setenv("TEST_GETENV", "test-value")
	if got := getenv("TEST_GETENV", "default"); got != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", got)
	}
}

func TestGetenvInt(t *testing.T) {
	testCases := []struct {
		value    string
		expected int
	}{
		{"", 42},
		{"100", 100},
		{" 7 ", 7},
		{"not-an-int", 42},
	}

	for _, tc := range testCases {
		t.Setenv("TEST_GETENV_INT", tc.value)
		if got := getenvInt("TEST_GETENV_INT", 42); got != tc.expected {
			t.Errorf("getenvInt(%q) = %d; expected %d", tc.value, got, tc.expected)
		}
	}
}

func TestGetenvBool(t *testing.T) {
	testCases := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"not-a-bool", true, true},
	}

	for _, tc := range testCases {
		t.Setenv("TEST_GETENV_BOOL", tc.value)
		if got := getenvBool("TEST_GETENV_BOOL", tc.def); got != tc.expected {
			t.Errorf("getenvBool(%q, %v) = %v; expected %v", tc.value, tc.def, got, tc.expected)
		}
	}
}

func TestGetenvDuration(t *testing.T) {
	testCases := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"2h", 2 * time.Hour},
		{"30", 30 * time.Second},
		{"soon", time.Minute},
	}

	for _, tc := range testCases {
		t.Setenv("TEST_GETENV_DURATION", tc.value)
		if got := getenvDuration("TEST_GETENV_DURATION", time.Minute); got != tc.expected {
			t.Errorf("getenvDuration(%q) = %v; expected %v", tc.value, got, tc.expected)
		}
	}
}

func TestLoad(t *testing.T) {
	for _, env := range []string{
		"MARKETPLACE_BASE_URL", "CATALOG_PAGE_SIZE", "SESSION_LIFETIME",
		"SFTP_PORT", "SFTP_DIR", "SFTP_INSECURE_IGNORE_HOSTKEY", "HTTP_RATE_RPS",
	} {
		t.Setenv(env, "")
	}

	t.Setenv("MARKETPLACE_BASE_URL", "https://marketplace.test/")
	t.Setenv("CATALOG_PAGE_SIZE", "20")
	t.Setenv("SESSION_LIFETIME", "1h")
	t.Setenv("SFTP_PORT", "2222")
	t.Setenv("HTTP_RATE_RPS", "2.5")

	cfg := Load()

	if cfg.MarketplaceBaseURL != "https://marketplace.test" {
		t.Errorf("Expected trailing slash to be trimmed, got '%s'", cfg.MarketplaceBaseURL)
	}
	if cfg.CatalogPageSize != 20 {
		t.Errorf("Expected CatalogPageSize to be 20, got %d", cfg.CatalogPageSize)
	}
	if cfg.SessionLifetime != time.Hour {
		t.Errorf("Expected SessionLifetime to be 1h, got %v", cfg.SessionLifetime)
	}
	if cfg.SFTPPort != 2222 {
		t.Errorf("Expected SFTPPort to be 2222, got %d", cfg.SFTPPort)
	}
	if cfg.HTTPRateRPS != 2.5 {
		t.Errorf("Expected HTTPRateRPS to be 2.5, got %v", cfg.HTTPRateRPS)
	}

	os.Unsetenv("CATALOG_PAGE_SIZE")
	os.Unsetenv("SFTP_PORT")

	cfg = Load()
	if cfg.CatalogPageSize != 15 {
		t.Errorf("Expected default CatalogPageSize to be 15, got %d", cfg.CatalogPageSize)
	}
	if cfg.SFTPPort != 22 {
		t.Errorf("Expected default SFTPPort to be 22, got %d", cfg.SFTPPort)
	}
	if cfg.SFTPDir != "/inbound" {
		t.Errorf("Expected default SFTPDir to be '/inbound', got '%s'", cfg.SFTPDir)
	}
	if cfg.SFTPInsecureIgnoreHostKey {
		t.Error("Expected SFTPInsecureIgnoreHostKey to default to false")
	}
}
