package backendmanager

import "runtime"

const (
	currentGOOS   = runtime.GOOS
	currentGOARCH = runtime.GOARCH
)
