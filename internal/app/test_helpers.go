package app

import (
	"os"
	"testing"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/config"
	"github.com/vk/patchloader/internal/loaded"
	"github.com/vk/patchloader/internal/testutil"
)

// SetupAppTest creates an App with debug logging captured in the returned
// buffer and its own loaded-package registry, so tests do not share marks.
func SetupAppTest(t *testing.T, cfg *config.Config, modules ...callback.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.LogLevel = "debug"

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := newApp(logBuffer, cfg, loaded.New(), modules...)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("PATCHLOADER_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
