package core

// Logger is any service able to log messages.
// `args` may contain an error (reported with its stack) and/or a user profile (the affected person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person is implemented by values the logger can attach as the affected user.
type Person interface {
	PersonID() string
	PersonName() string
	PersonEmail() string
}
