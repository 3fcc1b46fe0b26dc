package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init настраивает журнал по умолчанию: stdout и, если задан, файл.
// Возвращает функцию закрытия файла журнала.
func Init(level string, logFile string) (func() error, error) {
	writers := []io.Writer{os.Stdout}
	closeFn := func() error { return nil }

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return closeFn, err
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

// ParseLevel переводит строку конфигурации в уровень slog. Неизвестное значение - info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
