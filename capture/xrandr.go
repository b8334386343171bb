package capture

import (
	"image"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// output is one connected display as reported by xrandr --query.
type output struct {
	Name          string
	Width, Height int
	X, Y          int
}

// queryOutputs shells out to xrandr for human-readable output names.
// Best-effort: any failure (no X11, no xrandr binary) returns nil and the
// caller falls back to synthetic names.
func queryOutputs(logger *slog.Logger) []output {
	if _, err := exec.LookPath("xrandr"); err != nil {
		return nil
	}
	raw, err := exec.Command("xrandr", "--query").Output()
	if err != nil {
		if logger != nil {
			logger.Debug("xrandr query failed", slog.Any("error", err))
		}
		return nil
	}
	return parseXrandr(string(raw))
}

// parseXrandr extracts connected outputs with an active geometry token of the
// form WxH+X+Y from xrandr --query output.
func parseXrandr(raw string) []output {
	var outputs []output
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, " connected") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name := parts[0]
		for _, tok := range parts[1:] {
			out, ok := parseGeometry(tok)
			if !ok {
				continue
			}
			out.Name = name
			outputs = append(outputs, out)
			break
		}
	}
	return outputs
}

// parseGeometry parses a WxH+X+Y token.
func parseGeometry(tok string) (output, bool) {
	wh, xy, ok := strings.Cut(tok, "+")
	if !ok {
		return output{}, false
	}
	ws, hs, ok := strings.Cut(wh, "x")
	if !ok {
		return output{}, false
	}
	xs, ys, ok := strings.Cut(xy, "+")
	if !ok {
		return output{}, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return output{}, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return output{}, false
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return output{}, false
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return output{}, false
	}
	if w <= 0 || h <= 0 {
		return output{}, false
	}
	return output{Width: w, Height: h, X: x, Y: y}, true
}

// matchOutput finds the output whose geometry matches the display bounds.
func matchOutput(outputs []output, bounds image.Rectangle) (string, bool) {
	for _, o := range outputs {
		if o.X == bounds.Min.X && o.Y == bounds.Min.Y &&
			o.Width == bounds.Dx() && o.Height == bounds.Dy() {
			return o.Name, true
		}
	}
	return "", false
}
