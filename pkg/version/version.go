package version

// Version is the current ov version.
// Overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/orbview/pkg/version.Version=v0.2.0"
var Version = "v0.1.0"
