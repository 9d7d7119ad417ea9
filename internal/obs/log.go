package obs

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// serviceFormatter stamps every line with the service name and a unix
// millisecond timestamp on top of the JSON formatter.
type serviceFormatter struct {
	svcName string
	log.Formatter
}

func (f *serviceFormatter) Format(e *log.Entry) ([]byte, error) {
	e.Data["epochTimeMillis"] = e.Time.UnixNano() / int64(time.Millisecond)
	e.Data["service"] = f.svcName
	return f.Formatter.Format(e)
}

// SetupLog configures the process-wide logrus logger for structured JSON
// output. verbose switches on debug level.
func SetupLog(name string, verbose bool) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&serviceFormatter{
		svcName:   name,
		Formatter: &log.JSONFormatter{DisableTimestamp: true},
	})
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}
