package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/trackship/pkg/action"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 4 << 20

type actionDecoder interface {
	DecodeAction(data []byte) (action.Action, error)
}

type ingestStats struct {
	Tracked int
	Skipped int
}

// ingest reads one encoded action per line from r and passes each to track.
// Blank lines are ignored. Lines that fail to decode are logged and skipped.
// Actions without a timestamp are stamped with the current time.
func ingest(ctx context.Context, r io.Reader, dec actionDecoder, track func(action.Action), logger zerolog.Logger) (ingestStats, error) {
	var st ingestStats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return st, err
		}
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		a, err := dec.DecodeAction(data)
		if err != nil {
			st.Skipped++
			logger.Warn().Err(err).Int("line", line).Msg("skipping undecodable action")
			continue
		}
		if a.Timestamp == 0 {
			a.Timestamp = action.NowMillis()
		}
		track(a)
		st.Tracked++
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read input: %w", err)
	}
	return st, nil
}

// openInput returns stdin for "" and "-", otherwise the named file.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
