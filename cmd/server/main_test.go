package main

import (
	"testing"

	"sparkpro/desk/internal/config"
)

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cases := map[string]config.Config{
		"missing base url":  {LogLevel: "info"},
		"missing secret":    {APIBaseURL: "https://api.sparkpro.test", LogLevel: "info"},
		"relative base url": {APIBaseURL: "api.sparkpro.test", LogLevel: "info"},
		"short secret":      {APIBaseURL: "https://api.sparkpro.test", TokenSecret: "short", LogLevel: "info"},
		"bad log level":     {APIBaseURL: "https://api.sparkpro.test", TokenSecret: "0123456789abcdef0123456789abcdef", LogLevel: "loud"},
	}
	for name, cfg := range cases {
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("%s: expected config to be rejected", name)
		}
	}
}

func TestValidateConfigAcceptsGoodValues(t *testing.T) {
	cfg := config.Config{
		APIBaseURL:  "https://api.sparkpro.test",
		TokenSecret: "0123456789abcdef0123456789abcdef",
		LogLevel:    "debug",
	}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected config to pass, got %v", err)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	logger, err := newLogger("warn")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Fatalf("expected debug to be disabled at warn level")
	}
}
