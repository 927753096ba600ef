package version

// Version is the current version of the videodesk CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/videodesk-app/videodesk/internal/version.Version=v1.0.0'"
var Version = "dev"
