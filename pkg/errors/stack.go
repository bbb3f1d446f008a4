package errors

import (
	"fmt"
	"runtime"
	"strings"
)

type stack []uintptr

const maxStackDepth = 32

func callers() *stack {
	var pcs [maxStackDepth]uintptr
	// skip runtime.Callers, callers and the errors constructor frame.
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// fullStack renders each frame as "file:line funcname", innermost first.
func (s *stack) fullStack() []string {
	if s == nil || len(*s) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(*s)
	var lines []string
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%v:%v %v", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return lines
}

// StackOf extracts the captured stack of err, if any.
func StackOf(err error) []string {
	for err != nil {
		if se, ok := err.(interface{ fullStack() []string }); ok {
			return se.fullStack()
		}
		err = Unwrap(err)
	}
	return nil
}
