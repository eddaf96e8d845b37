package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/organizer_hook/internal/hook"
)

func exhaustionMessage(event hook.Event, exhausted *hook.ExhaustedError) string {
	name := event.Name
	if name == "" {
		name = "unknown torrent"
	}

	return fmt.Sprintf("❌ Organizer scan not triggered for torrent: %s (gave up after the %s attempt: %v)",
		name, humanize.Ordinal(exhausted.Attempts), exhausted.Last)
}
