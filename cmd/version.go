package cmd

// version is set at build time via -ldflags "-X .../cmd.version=...";
// left at "dev" for local builds.
var version = "dev"

// Version returns the viewer's reported version string.
func Version() string {
	return "pdftui " + version
}
