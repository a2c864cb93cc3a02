// Package loadlog is a built-in module that logs every package load it is
// dispatched for, including the application metadata in a stable order.
package loadlog

import (
	"context"
	"sort"

	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/internal/ctxlog"
)

// CallbackName is the name the module registers its callback under.
const CallbackName = "loadlog"

// Module implements the callback.Module interface for this package. It runs
// last so the line reflects a load every other module has already seen.
type Module struct{}

// Register registers the callback with the set.
func (m *Module) Register(s *callback.Set) {
	s.RegisterFunc(CallbackName, callback.PriorityLowest, OnLoad)
}

// OnLoad logs lc at INFO.
func OnLoad(ctx context.Context, lc *callback.LoadContext) error {
	logger := ctxlog.FromContext(ctx)
	args := []any{
		"package", lc.PackageName,
		"process", lc.ProcessName,
		"first_application", lc.IsFirstApplication,
	}
	if info := lc.AppInfo; info != nil {
		args = append(args, "uid", info.UID, "target_sdk", info.TargetSDK)
		// Sort keys for consistent output
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "meta."+k, info.Metadata[k])
		}
	}
	logger.Info("Package loaded.", args...)
	return nil
}
