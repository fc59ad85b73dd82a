package logrusstackhook

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

type FilterFunc func(frame runtime.Frame) bool

func RemovePathsContaining(values ...string) FilterFunc {
	return func(frame runtime.Frame) bool {
		for _, value := range values {
			if strings.Contains(frame.File, value) {
				return false
			}
		}

		return true
	}
}

func RemoveFunctionsContaining(values ...string) FilterFunc {
	return func(frame runtime.Frame) bool {
		for _, value := range values {
			if strings.Contains(frame.Function, value) {
				return false
			}
		}

		return true
	}
}

func CombineFilters(a ...FilterFunc) FilterFunc {
	return func(frame runtime.Frame) bool {
		for _, fn := range a {
			if !fn(frame) {
				return false
			}
		}

		return true
	}
}

var (
	DefaultLevels = []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}
	DefaultFilter = CombineFilters(
		RemovePathsContaining("github.com/sirupsen/logrus"),
		RemoveFunctionsContaining("logrusstackhook.(*StackHook)"),
	)
)

// StackHook adds the caller's stack, one "stack.NN" field per frame, to
// entries at the configured levels.
type StackHook struct {
	levels []logrus.Level
	filter FilterFunc
	depth  int
}

func NewStackHook(levels []logrus.Level, filter FilterFunc) *StackHook {
	if levels == nil {
		levels = DefaultLevels
	}

	if filter == nil {
		filter = DefaultFilter
	}

	return &StackHook{levels: levels, filter: filter, depth: 25}
}

func (h *StackHook) Levels() []logrus.Level { return h.levels }

func (h *StackHook) Fire(e *logrus.Entry) error {
	pc := make([]uintptr, h.depth)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])

	i := 0
	for {
		frame, more := frames.Next()

		if h.filter(frame) {
			e.Data[fmt.Sprintf("stack.%02d", i)] = fmt.Sprintf("%s:%d: %s", frame.File, frame.Line, frame.Function)
			i++
		}

		if !more {
			break
		}
	}

	return nil
}
