package config_test

import (
	"testing"

	"github.com/mimecast/filterpipe/internal/config"
)

func TestDefaultIsNormalMode(t *testing.T) {
	c := config.Default()
	if c.IsRendering() {
		t.Fatal("Default config should not be in rendering mode")
	}
}

func TestRenderingModeReportsIsRendering(t *testing.T) {
	c := config.Default()
	c.Mode = config.ModeRendering
	if !c.IsRendering() {
		t.Fatal("ModeRendering should report IsRendering true")
	}
}

func TestAllowsAESKeyLength(t *testing.T) {
	c := config.Default()
	for _, n := range []int{16, 24, 32} {
		if !c.AllowsAESKeyLength(n) {
			t.Errorf("expected %d to be an allowed AES key length", n)
		}
	}
	if c.AllowsAESKeyLength(20) {
		t.Error("20 should not be an allowed AES key length")
	}
}
