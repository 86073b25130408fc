package config

import (
	"testing"
)

func TestValidateDetailed_Valid(t *testing.T) {
	cfg := DefaultConfig()
	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Errorf("expected valid config, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateDetailed_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Include = nil
	cfg.Watch.PollMs = -1
	result := cfg.ValidateDetailed()
	if result.IsValid() {
		t.Fatal("expected invalid config")
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", result.Errors)
	}
}

func TestValidateDetailed_WeirdIncludePattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Include = []string{"src/models"}
	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Fatalf("warnings only expected, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", result.Warnings)
	}
}

func TestValidateDetailed_StrictWithoutEmit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.StrictValidation = true
	result := cfg.ValidateDetailed()
	if len(result.Warnings) == 0 {
		t.Error("expected warning about strictValidation without emit")
	}

	cfg.Runtime.Emit = true
	if result := cfg.ValidateDetailed(); len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateDetailed_CustomMarker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MarkerProperty = "__reflect"
	if result := cfg.ValidateDetailed(); len(result.Warnings) == 0 {
		t.Error("expected warning about custom marker")
	}
}
