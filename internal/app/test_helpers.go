package app

import (
	"os"
	"testing"

	"github.com/vk/glgrid/internal/hcl"
	"github.com/vk/glgrid/internal/testutil"
)

// SetupAppTest creates a new app instance reading HCL for system testing.
// The log and the printed plan go to the returned buffer.
func SetupAppTest(t *testing.T, appConfig *Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	appConfig.LogFormat = "text"
	if appConfig.WatchDebounce <= 0 {
		appConfig.WatchDebounce = DefaultWatchDebounce
	}
	testApp := NewApp(logBuffer, appConfig, hcl.NewLoader(), opts...)

	t.Cleanup(func() {
		if os.Getenv("GLGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
