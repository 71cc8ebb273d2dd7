package message

import (
	"strings"
	"testing"
)

func TestValidateBody(t *testing.T) {
	if err := ValidateBody("hello"); err != nil {
		t.Errorf("plain message rejected: %v", err)
	}
	if err := ValidateBody("héllo 👋"); err != nil {
		t.Errorf("multibyte message rejected: %v", err)
	}
	if err := ValidateBody(""); err == nil {
		t.Error("empty body must be rejected")
	}
	if err := ValidateBody(strings.Repeat("a", MaxBodyBytes+1)); err == nil {
		t.Error("oversized body must be rejected")
	}
	// Each rune is 4 bytes, so the char limit trips before the byte limit
	// would for this input length.
	if err := ValidateBody(strings.Repeat("🙂", MaxBodyChars/4)); err != nil {
		t.Errorf("message under both limits rejected: %v", err)
	}
	// 2001 two-byte runes stay under the byte cap but break the char cap.
	if err := ValidateBody(strings.Repeat("é", MaxBodyChars+1)); err == nil {
		t.Error("over-long body must be rejected by the character limit")
	}
	if err := ValidateBody("\xff\xfe"); err == nil {
		t.Error("invalid UTF-8 must be rejected")
	}
}
