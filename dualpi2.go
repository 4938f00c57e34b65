package dualpi2

import (
	"github.com/MatusOllah/slogcolor"
	"github.com/fatih/color"
	"log/slog"
	"os"
)

const (
	minMtu = 68 // RFC 791 minimum

	// byte count added per packet by the link layer when framing, used by
	// the lookahead path to account for what the device will really send
	defaultFramingOverhead = 38

	// 1000 rounds are enough to select from any non-empty queue
	maxSchedulerIterations = 1000
)

var (
	logger = slog.New(slogcolor.NewHandler(os.Stderr, &slogcolor.Options{
		Level:         slog.LevelInfo,
		TimeFormat:    "15:04:05.000",
		SrcFileMode:   slogcolor.ShortFile,
		SrcFileLength: 16,
		MsgPrefix:     color.HiWhiteString("|"),
		MsgColor:      color.New(color.FgHiWhite),
		MsgLength:     24,
	}))
)

func init() {
	color.NoColor = false
	slog.SetDefault(logger)
}
