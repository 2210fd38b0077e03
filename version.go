package gopresentation

import "fmt"

// Version information for SlideOCR.
const (
	VersionMajor = 0
	VersionMinor = 3
	VersionPatch = 0
)

// Version is the full version string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

// ApplicationName is written to docProps/app.xml.
func ApplicationName() string {
	return "SlideOCR " + Version
}
