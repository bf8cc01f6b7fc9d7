package logsvc

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/user"
)

type ZeroLogger struct {
	log zerolog.Logger
}

var _ core.Logger = (*ZeroLogger)(nil)

func NewZeroLogger(conf *core.Config) *ZeroLogger {
	var out io.Writer = os.Stderr
	if conf.Debug {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log := zerolog.New(out).With().
		Timestamp().
		Str("app", conf.AppName).
		Str("env", conf.Env).
		Logger()
	return &ZeroLogger{log: log}
}

func (l ZeroLogger) Enable(bool) {} // always on

// expected args: error, map[string]interface{}, user.User
func (l ZeroLogger) event(evt *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case user.User:
			evt = evt.Str("user_id", a.ID).Str("username", a.Username)
		default:
			evt = evt.Interface("arg", a)
		}
	}
	evt.Msg(msg)
}

func (l ZeroLogger) Debug(msg string, args ...interface{}) { l.event(l.log.Debug(), msg, args) }
func (l ZeroLogger) Info(msg string, args ...interface{})  { l.event(l.log.Info(), msg, args) }
func (l ZeroLogger) Warn(msg string, args ...interface{})  { l.event(l.log.Warn(), msg, args) }
func (l ZeroLogger) Error(msg string, args ...interface{}) { l.event(l.log.Error(), msg, args) }
func (l ZeroLogger) Fatal(msg string, args ...interface{}) { l.event(l.log.Fatal(), msg, args) }
