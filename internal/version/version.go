// ABOUTME: Version and product identification
// ABOUTME: Reported in server/hello and the server TUI
package version

// Version is overridden at build time with -ldflags "-X .../version.Version=..."
var Version = "0.1.0"

const (
	Product      = "Resonate Resampler"
	Manufacturer = "Resonate"
)

// String returns the product name with its version
func String() string {
	return Product + " " + Version
}
