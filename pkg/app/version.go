package app

// Version is the current version of the boardcore package.
const Version = "v0.3.0"

// appVersion is the version of the host application, usually set through -ldflags.
var appVersion string

// AppVersion is the version of the application embedding boardcore.
func AppVersion() string {
	return appVersion
}

// SetAppVersion sets the version of the application embedding boardcore.
func SetAppVersion(v string) {
	appVersion = v
}
