package install

// systemDir is the system-wide install location on macOS.
var systemDir = map[Browser]string{
	Firefox: "/Library/Application Support/Mozilla/NativeMessagingHosts",
	Chrome:  "/Library/Google/Chrome/NativeMessagingHosts",
}

// userSubDir is the user-specific install location, relative to a user's
// home directory on macOS.
var userSubDir = map[Browser]string{
	Firefox: "Library/Application Support/Mozilla/NativeMessagingHosts",
	Chrome:  "Library/Application Support/Google/Chrome/NativeMessagingHosts",
}
