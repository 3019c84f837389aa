package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks threshold sanity and reports every problem at once.
// Medium >= High is not an error here: tier bucketing corrects it.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Risk.Medium >= 0 && c.Risk.Medium <= 100, "risk.medium must be within 0-100, got %v", c.Risk.Medium)
	check(c.Risk.High >= 0 && c.Risk.High <= 100, "risk.high must be within 0-100, got %v", c.Risk.High)
	check(c.Attendance.ZThreshold > 0, "attendance.z_threshold must be positive, got %v", c.Attendance.ZThreshold)
	check(c.Attendance.LongHours > 0, "attendance.long_hours must be positive, got %v", c.Attendance.LongHours)
	check(c.Attendance.StreakDays >= 1, "attendance.streak_days must be at least 1, got %d", c.Attendance.StreakDays)
	check(c.Anonymize.Length >= 4, "anonymize.length must be at least 4, got %d", c.Anonymize.Length)
	check(c.Comment.TimeoutSecs > 0, "comment.timeout_secs must be positive, got %d", c.Comment.TimeoutSecs)
	check(c.Comment.MaxTokens > 0, "comment.max_tokens must be positive, got %d", c.Comment.MaxTokens)
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port must be within 1-65535, got %d", c.Server.Port)
	check(c.Server.MaxUploadMB > 0, "server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}
