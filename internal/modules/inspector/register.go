package inspector

import (
	"modulehost/internal/loader"
	"modulehost/pkg/module"
)

// Library is the identifier the inspector is linked under.
const Library = "INSPECTOR"

// Version is reported to the registry on first load.
const Version = "1.0.0"

func init() {
	if err := loader.Register(Library, createModule, Version); err != nil {
		panic(err)
	}
}

func createModule() module.Module {
	return New()
}
