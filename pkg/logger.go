package gpm

type Logger interface {
	Info(message string, module string)
	Warn(message string, module string)
	Error(string)
}

type discardLogger struct{}

func (discardLogger) Info(string, string) {}
func (discardLogger) Warn(string, string) {}
func (discardLogger) Error(string)        {}

var logger Logger = discardLogger{}

func SetLogger(l Logger) {
	if l == nil {
		l = discardLogger{}
	}
	logger = l
}
