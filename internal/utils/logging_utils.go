package utils

import (
	"context"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func GenerateTraceId() string {
	return uuid.New().String()
}

// ExtractServiceName returns the service label attached to every log entry.
func ExtractServiceName() string {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "kazzla"
	}
	return service
}

func LogEntry(entry *log.Entry, level, message string) {
	switch level {
	case "debug":
		entry.Debug(message)
	case "info":
		entry.Info(message)
	case "warn":
		entry.Warn(message)
	case "error":
		entry.Error(message)
	case "fatal":
		entry.Fatal(message)
	case "panic":
		entry.Panic(message)
	default:
		entry.Info(message)
	}
}

func LogMessage(level, message string) {
	entry := log.WithFields(log.Fields{
		"service": ExtractServiceName(),
	})

	LogEntry(entry, level, message)
}

// TraceIdFrom returns the trace id of the request bound to ctx, or an empty string.
// Both gin contexts (string key) and plain request contexts are supported.
func TraceIdFrom(ctx context.Context) string {
	if traceId, ok := ctx.Value(TraceIdKey).(string); ok {
		return traceId
	}
	if traceId, ok := ctx.Value(TraceIdKey.String()).(string); ok {
		return traceId
	}
	return ""
}

func LogMessageWithFields(ctx context.Context, level, message string) {
	entry := log.WithFields(log.Fields{
		"traceId": TraceIdFrom(ctx),
		"service": ExtractServiceName(),
	})

	LogEntry(entry, level, message)
}

func LogMessageWithFieldsAndError(ctx context.Context, level, message string, err error) {
	entry := log.WithFields(log.Fields{
		"traceId": TraceIdFrom(ctx),
		"service": ExtractServiceName(),
		"error":   err,
	})

	LogEntry(entry, level, message)
}
