package main

import (
	"fmt"
	"io"

	"github.com/riftlabs/corelaunch/internal/progress"
)

// printProgress drains bus.Updates to w, printing one line per
// SetLabel and a percentage line for every whole-percent SetProgress
// change. It returns a function the caller must invoke after the bus
// is closed, which blocks until the drain goroutine has exited.
func printProgress(w io.Writer, bus *progress.Bus) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		lastPercent := -1
		for u := range bus.Updates {
			switch u.Kind {
			case progress.KindSetLabel:
				fmt.Fprintln(w, u.Label)
			case progress.KindSetProgress:
				percent := int(u.Progress * 100 / progress.TotalUnits())
				if percent != lastPercent {
					fmt.Fprintf(w, "\r%3d%%", percent)
					lastPercent = percent
				}
			}
		}
		if lastPercent >= 0 {
			fmt.Fprintln(w)
		}
	}()
	return func() { <-done }
}
