package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the log file path for a run started at start.
func LogFilePath(logsDir, runName string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", runName, start.Format("20060102_150405")))
}
