package install

// systemDir is the system-wide install location on Linux.
var systemDir = map[Browser]string{
	Firefox: "/usr/lib/mozilla/native-messaging-hosts",
	Chrome:  "/etc/opt/chrome/native-messaging-hosts",
}

// userSubDir is the user-specific install location, relative to a user's
// home directory on Linux.
var userSubDir = map[Browser]string{
	Firefox: ".mozilla/native-messaging-hosts",
	Chrome:  ".config/google-chrome/NativeMessagingHosts",
}
