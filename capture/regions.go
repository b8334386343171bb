package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kbinani/screenshot"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// ErrNoDisplays is returned when enumeration finds no active displays.
var ErrNoDisplays = errors.New("capture: no active displays")

// Regions enumerates the attached displays and returns one capture region per
// display, ordered by display index. Output names are resolved best-effort
// via xrandr when available, falling back to display-N.
func Regions(logger *slog.Logger) ([]blank.Region, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	outputs := queryOutputs(logger)
	regions := make([]blank.Region, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		name := fmt.Sprintf("display-%d", i)
		if out, ok := matchOutput(outputs, bounds); ok {
			name = out
		}
		regions = append(regions, blank.Region{ID: i, Name: name, Bounds: bounds})
	}
	return regions, nil
}
