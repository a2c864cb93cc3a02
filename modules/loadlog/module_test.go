package loadlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/testutil"
)

func TestModule_RegistersLowestPriority(t *testing.T) {
	s := callback.NewSet()
	(&Module{}).Register(s)

	cbs := s.Snapshot()
	require.Len(t, cbs, 1)
	assert.Equal(t, CallbackName, cbs[0].Name)
	assert.Equal(t, callback.PriorityLowest, cbs[0].Priority)
}

func TestOnLoad_LogsSortedMetadata(t *testing.T) {
	ctx, logs := testutil.LogContext(t)
	lc := callback.NewLoadContext("com.example.app", "com.example.app:remote", nil, &callback.AppInfo{
		UID:       10123,
		TargetSDK: 34,
		Metadata:  map[string]string{"zeta": "1", "alpha": "2"},
	})
	lc.IsFirstApplication = true

	require.NoError(t, OnLoad(ctx, lc))

	out := logs.String()
	assert.Contains(t, out, `msg="Package loaded."`)
	assert.Contains(t, out, "package=com.example.app")
	assert.Contains(t, out, "process=com.example.app:remote")
	assert.Contains(t, out, "first_application=true")
	assert.Contains(t, out, "target_sdk=34")
	assert.Contains(t, out, "meta.alpha=2")
	assert.Less(t, strings.Index(out, "meta.alpha=2"), strings.Index(out, "meta.zeta=1"))
}

func TestOnLoad_WithoutAppInfo(t *testing.T) {
	ctx, logs := testutil.LogContext(t)
	require.NoError(t, OnLoad(ctx, callback.NewLoadContext("a.b", "a.b", nil, nil)))
	assert.NotContains(t, logs.String(), "uid=")
}
