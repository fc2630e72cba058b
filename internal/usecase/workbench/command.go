package workbench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/usecase/viewer"
)

// Op is a viewer command.
type Op string

// Viewer commands.
const (
	OpNext      Op = "next"
	OpPrevious  Op = "previous"
	OpZoomIn    Op = "zoom_in"
	OpZoomOut   Op = "zoom_out"
	OpScroll    Op = "scroll"
	OpDragStart Op = "drag_start"
	OpDragMove  Op = "drag_move"
	OpDragEnd   Op = "drag_end"
	OpDrag      Op = "drag" // start at (X, Y), move to (X2, Y2), end
	OpReset     Op = "reset"
	OpClose     Op = "close"
)

// Command is one viewer input event.
type Command struct {
	Op     Op      `json:"op"`
	Pane   string  `json:"pane,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`
}

// ParseCommand reads a REPL line such as "next", "+ query", "scroll result -120"
// or "drag result 0 0 25 10". The pane defaults to the result pane.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command: %w", domain.ErrInvalidArgument)
	}

	var cmd Command
	switch fields[0] {
	case "next", "n", ">":
		cmd.Op = OpNext
	case "prev", "previous", "p", "<":
		cmd.Op = OpPrevious
	case "+", "zoom-in", "in":
		cmd.Op = OpZoomIn
	case "-", "zoom-out", "out":
		cmd.Op = OpZoomOut
	case "scroll":
		cmd.Op = OpScroll
	case "drag":
		cmd.Op = OpDrag
	case "reset", "0":
		cmd.Op = OpReset
	case "close":
		cmd.Op = OpClose
	default:
		return Command{}, fmt.Errorf("unknown command %q: %w", fields[0], domain.ErrInvalidArgument)
	}

	args := fields[1:]
	if len(args) > 0 {
		if _, err := viewer.ParsePane(args[0]); err == nil {
			cmd.Pane = args[0]
			args = args[1:]
		}
	}

	nums := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return Command{}, fmt.Errorf("argument %q: %w", a, domain.ErrInvalidArgument)
		}
		nums[i] = v
	}

	switch cmd.Op {
	case OpScroll:
		if len(nums) != 1 {
			return Command{}, fmt.Errorf("scroll needs one delta: %w", domain.ErrInvalidArgument)
		}
		cmd.DeltaY = nums[0]
	case OpDrag:
		if len(nums) != 4 {
			return Command{}, fmt.Errorf("drag needs x y x2 y2: %w", domain.ErrInvalidArgument)
		}
		cmd.X, cmd.Y, cmd.X2, cmd.Y2 = nums[0], nums[1], nums[2], nums[3]
	default:
		if len(nums) != 0 {
			return Command{}, fmt.Errorf("%s takes no numbers: %w", cmd.Op, domain.ErrInvalidArgument)
		}
	}
	return cmd, nil
}

func (c Command) pane() (viewer.Pane, error) {
	if c.Pane == "" {
		return viewer.Match, nil
	}
	return viewer.ParsePane(c.Pane)
}

// apply runs the command against v.
func (c Command) apply(v *viewer.Viewer) error {
	p, err := c.pane()
	if err != nil {
		return err
	}

	switch c.Op {
	case OpNext:
		return v.Next()
	case OpPrevious:
		return v.Previous()
	case OpZoomIn:
		return v.ZoomIn(p)
	case OpZoomOut:
		return v.ZoomOut(p)
	case OpScroll:
		return v.Scroll(p, c.DeltaY)
	case OpDragStart:
		return v.BeginDrag(p, c.X, c.Y)
	case OpDragMove:
		return v.DragTo(p, c.X, c.Y)
	case OpDragEnd:
		return v.EndDrag(p)
	case OpDrag:
		if err := v.BeginDrag(p, c.X, c.Y); err != nil {
			return err
		}
		if err := v.DragTo(p, c.X2, c.Y2); err != nil {
			return err
		}
		return v.EndDrag(p)
	case OpReset:
		return v.Reset()
	case OpClose:
		if !v.IsOpen() {
			return domain.ErrViewerClosed
		}
		v.Close()
		return nil
	default:
		return fmt.Errorf("unknown op %q: %w", c.Op, domain.ErrInvalidArgument)
	}
}
