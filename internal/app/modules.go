package app

import (
	"github.com/vk/patchloader/internal/callback"
	"github.com/vk/patchloader/modules/loadlog"
)

// coreModules is the list of modules registered when the host passes none.
var coreModules = []callback.Module{
	&loadlog.Module{},
}
