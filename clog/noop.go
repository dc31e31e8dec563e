package clog

// nopLogger 丢弃所有日志的实现
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

func (n nopLogger) With(...Field) Logger          { return n }
func (n nopLogger) WithNamespace(...string) Logger { return n }
