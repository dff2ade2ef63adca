package store

import (
	"note-sync/app/logger"

	"go.uber.org/zap"
)

// NoticeLevel 提示级别
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice 需要展示给用户的提示，例如 toast
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// Notifier 接收用户可见的提示
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc 函数形式的 Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type logNotifier struct {
	log *logger.Logger
}

// LogNotifier 把提示写入日志
func LogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (l *logNotifier) Notify(n Notice) {
	fields := []zap.Field{zap.String("level", n.Level.String())}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	if n.Level == NoticeError {
		l.log.Warn(n.Message, fields...)
		return
	}
	l.log.Info(n.Message, fields...)
}

func (s *Store) notify(level NoticeLevel, msg string, err error) {
	s.notifier.Notify(Notice{Level: level, Message: msg, Err: err})
}
