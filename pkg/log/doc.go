/*
Package log provides structured logging for the sync engine using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: any io.Writer, default stdout    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Contextual Loggers                 │          │
	│  │  - WithComponent("downloader")               │          │
	│  │  - WithSeries("kanji")                       │          │
	│  │  - WithLang("en")                            │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	downloaderLog := log.WithComponent("downloader").With().
		Str("series", "kanji").Logger()
	downloaderLog.Info().Int("major", 3).Msg("starting snapshot fetch")

# Output example

	{"level":"info","component":"downloader","series":"kanji","major":3,"time":"2026-01-05T10:30:01Z","message":"starting snapshot fetch"}
	{"level":"error","component":"applier","series":"names","error":"protocol: unclosed version","time":"2026-01-05T10:30:02Z","message":"applier aborted"}
*/
package log
