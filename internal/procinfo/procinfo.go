// Package procinfo answers questions about the current process.
package procinfo

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	once sync.Once
	name string
)

// Name returns the name of the current process. On Android this is the first
// command-line argument, which the zygote rewrites to the package or
// "package:suffix" process name. The value is computed once.
func Name() string {
	once.Do(func() {
		name = lookup(int32(os.Getpid()))
	})
	return name
}

func lookup(pid int32) string {
	if p, err := process.NewProcess(pid); err == nil {
		if args, err := p.CmdlineSlice(); err == nil && len(args) > 0 && args[0] != "" {
			return filepath.Base(args[0])
		}
		if n, err := p.Name(); err == nil && n != "" {
			return n
		}
	}
	return filepath.Base(os.Args[0])
}
