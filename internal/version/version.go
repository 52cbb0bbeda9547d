// ABOUTME: Build and product identity
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

var (
	// Version is the release version
	Version = "0.3.0"

	// Product is the application name
	Product = "radiodeck"

	// Manufacturer identifies the publisher
	Manufacturer = "Resonate Protocol"
)

// UserAgent is sent with every stream request
func UserAgent() string {
	return Product + "/" + Version
}
