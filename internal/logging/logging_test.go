package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/mailterm/internal/model"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mailterm.log")
	logger, closer, err := Setup(model.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.WithField("view", "all").Debug("loaded")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"loaded"`) || !strings.Contains(line, `"view":"all"`) {
		t.Errorf("unexpected log output: %s", line)
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, _, err := Setup(model.LogConfig{Level: "chatty", File: filepath.Join(t.TempDir(), "x.log")}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
