// Package gwlog provides the gateway's structured logger: zerolog event
// chaining, optional file rotation, and console color styling matching the
// rest of the fleet's log output.
package gwlog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction. Zero value is a sane default: info
// level, console format when stdout is a TTY, no file output.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console, json; empty = auto-detect from stdout
	File       string // optional rotating log file path
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var levelStyles = map[zerolog.Level]lipgloss.Style{
	zerolog.DebugLevel: lipgloss.NewStyle().SetString("DBG").Foreground(lipgloss.Color("#8d8d8d")).PaddingLeft(1).PaddingRight(1),
	zerolog.InfoLevel:  lipgloss.NewStyle().SetString("INF").Foreground(lipgloss.Color("#4589ff")).PaddingLeft(1).PaddingRight(1),
	zerolog.WarnLevel:  lipgloss.NewStyle().SetString("WRN").Foreground(lipgloss.Color("#ff832b")).PaddingLeft(1).PaddingRight(1),
	zerolog.ErrorLevel: lipgloss.NewStyle().SetString("ERR").Foreground(lipgloss.Color("#fa4d56")).PaddingLeft(1).PaddingRight(1),
}

var timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))

// New builds a zerolog.Logger per cfg. Call SetGlobal to install it as the
// process-wide default used by L().
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			format = "console"
		} else {
			format = "json"
		}
	}

	var out io.Writer = os.Stdout
	if format == "console" {
		cw := zerolog.NewConsoleWriter()
		cw.TimeFormat = "01-02 15:04:05"
		cw.FormatTimestamp = func(i interface{}) string {
			s, ok := i.(string)
			if !ok {
				return ""
			}
			t, err := time.Parse(zerolog.TimeFieldFormat, s)
			if err != nil {
				return timestampStyle.Render(s)
			}
			return timestampStyle.Render(t.Format("[01-02 15:04:05]"))
		}
		cw.FormatLevel = func(i interface{}) string {
			lvl, _ := zerolog.ParseLevel(toString(i))
			if style, ok := levelStyles[lvl]; ok {
				return style.String()
			}
			return strings.ToUpper(toString(i))
		}
		out = cw
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    firstNonZero(cfg.MaxSizeMB, 100),
			MaxBackups: firstNonZero(cfg.MaxBackups, 5),
			MaxAge:     firstNonZero(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		}
		out = zerolog.MultiLevelWriter(out, rotator)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func firstNonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func toString(i interface{}) string {
	s, _ := i.(string)
	return s
}

var global = zerolog.New(os.Stdout).With().Timestamp().Logger()

// SetGlobal installs l as the logger returned by L.
func SetGlobal(l zerolog.Logger) { global = l }

// L returns the process-wide logger.
func L() *zerolog.Logger { return &global }
