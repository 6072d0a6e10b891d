package base

import (
	"fmt"
	"time"
)

// DisplayLocation is the location used to display times to users.
var DisplayLocation = time.UTC

// loadDisplayLocation sets the `DisplayLocation` to the location named by the
// name.
func loadDisplayLocation(name string) error {
	if name == "" {
		DisplayLocation = time.UTC
		return nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load time zone %q: %w", name, err)
	}

	DisplayLocation = loc

	return nil
}

// FormatTime formats the t in the `DisplayLocation` for display.
func FormatTime(t time.Time) string {
	return t.In(DisplayLocation).Format("2006-01-02 15:04")
}
