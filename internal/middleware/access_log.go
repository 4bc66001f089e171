package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessLog is gin's request logger with the query string left out of the
// logged path, so tokens passed as ?token= never reach the log.
func AccessLog() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: accessLogLine,
		SkipPaths: []string{"/health"},
	})
}

func accessLogLine(p gin.LogFormatterParams) string {
	path, _, _ := strings.Cut(p.Path, "?")

	var statusColor, methodColor, resetColor string
	if p.IsOutputColor() {
		statusColor = p.StatusCodeColor()
		methodColor = p.MethodColor()
		resetColor = p.ResetColor()
	}
	latency := p.Latency
	if latency > time.Minute {
		latency = latency.Truncate(time.Second)
	}

	return fmt.Sprintf("[GIN] %v |%s %3d %s| %13v | %15s |%s %-7s %s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		statusColor, p.StatusCode, resetColor,
		latency,
		p.ClientIP,
		methodColor, p.Method, resetColor,
		path,
		p.ErrorMessage,
	)
}
