package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"empty is rejected", "", "", ErrMissingTimezone},
		{"blank is rejected", "   ", "", ErrMissingTimezone},
		{"utc", "UTC", "UTC", nil},
		{"local", "local", "Local", nil},
		{"iana", "America/Sao_Paulo", "America/Sao_Paulo", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadLocation(%q) error = %v", tt.in, err)
			}
			if loc.String() != tt.want {
				t.Errorf("location = %s, want %s", loc, tt.want)
			}
		})
	}

	if _, err := LoadLocation("Mars/Olympus"); err == nil {
		t.Error("unknown zone accepted")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_TIMEZONE", "UTC")
	t.Setenv("PORT", "9090")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	t.Setenv("SPRINT_CHECK_WINDOW", "72h")
	t.Setenv("MAIL_RATE_PER_SECOND", "2.5")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" || cfg.BaseURL != "https://app.example.com" {
		t.Errorf("Port/BaseURL = %q/%q", cfg.Port, cfg.BaseURL)
	}
	if cfg.SprintCheckWindow != 72*time.Hour || cfg.MailRatePerSecond != 2.5 {
		t.Errorf("window/rate = %s/%v", cfg.SprintCheckWindow, cfg.MailRatePerSecond)
	}
	if cfg.DB.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want default 25", cfg.DB.MaxOpenConns)
	}
	if cfg.RateLimitLocation != time.UTC {
		t.Errorf("RateLimitLocation = %v", cfg.RateLimitLocation)
	}
}

func TestLoad_RequiredSettings(t *testing.T) {
	t.Setenv("RATE_LIMIT_TIMEZONE", "UTC")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("missing JWT_SECRET error = %v", err)
	}

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_TIMEZONE", "")
	if _, err := Load(); !errors.Is(err, ErrMissingTimezone) {
		t.Errorf("missing timezone error = %v", err)
	}
}
