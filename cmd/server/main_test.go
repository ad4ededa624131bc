package main

import (
	"testing"

	"github.com/Bodin4747/CheikysAdmin/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	_, err := validateSecurityConfig(config.Config{AuthSecret: "short", StoreTimezone: "America/Mexico_City"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsUnknownTimezone(t *testing.T) {
	_, err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StoreTimezone: "America/Atlantida"})
	if err == nil {
		t.Fatalf("expected unknown timezone to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	loc, err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StoreTimezone: "America/Mexico_City"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
	if loc.String() != "America/Mexico_City" {
		t.Fatalf("expected resolved location, got %s", loc)
	}
}
