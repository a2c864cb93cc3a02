package callback

import (
	"fmt"

	"github.com/google/uuid"
)

// ClassLoader resolves classes of the loaded application. Resolve returns an
// error when the class is not visible to this loader.
type ClassLoader interface {
	Resolve(className string) error
}

// ClassSet is a ClassLoader that knows a fixed set of class names.
type ClassSet map[string]struct{}

// NewClassSet builds a ClassSet from names.
func NewClassSet(names ...string) ClassSet {
	s := make(ClassSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Resolve implements ClassLoader.
func (s ClassSet) Resolve(className string) error {
	if _, ok := s[className]; !ok {
		return fmt.Errorf("class %s not found", className)
	}
	return nil
}

// AppInfo is the static metadata of an installed application.
type AppInfo struct {
	PackageName      string
	SourceDir        string
	DataDir          string
	NativeLibraryDir string
	UID              int
	TargetSDK        int
	Metadata         map[string]string
}

// LoadContext is handed to every callback for one package-load event. It is
// built fresh per event and must not be retained after the callback returns.
type LoadContext struct {
	// ID correlates log lines of a single dispatch.
	ID                 string
	PackageName        string
	ProcessName        string
	ClassLoader        ClassLoader
	AppInfo            *AppInfo
	IsFirstApplication bool
}

// NewLoadContext returns a LoadContext with a fresh ID.
func NewLoadContext(packageName, processName string, cl ClassLoader, info *AppInfo) *LoadContext {
	return &LoadContext{
		ID:          uuid.NewString(),
		PackageName: packageName,
		ProcessName: processName,
		ClassLoader: cl,
		AppInfo:     info,
	}
}
