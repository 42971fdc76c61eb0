package main

import (
	"log/slog"
	"os"
)

// initLogging installs a text slog handler at the level named by
// global.json's log_level, matching the teacher's log/slog idiom.
func initLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
