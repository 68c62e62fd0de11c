package logger

import "strings"

var allowedLevels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var allowedStatus = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
}

var allowedOutcome = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"noop":         "noop",
	"rate_limited": "rate_limited",
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	mapped, ok := allowedStatus[status]
	if !ok {
		return status, false
	}
	return mapped, true
}

func normalizeOutcome(outcome string) (string, bool) {
	val, ok := allowedOutcome[strings.ToLower(strings.TrimSpace(outcome))]
	return val, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"stage",
	"from",
	"to",
	"outcome",
	"duration_ms",
	"tracked",
	"deleted",
	"failed",
	"shop_id",
	"order_id",
	"message_id",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
