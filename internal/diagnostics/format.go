package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
)

// Formatter renders diagnostics for human consumption. Color is only
// emitted when the destination is an interactive terminal.
type Formatter struct {
	out   io.Writer
	color bool
}

func NewFormatter(out io.Writer) *Formatter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Formatter{out: out, color: color}
}

// NewFormatterColor forces the color setting, for tests and callers
// that render into buffers.
func NewFormatterColor(out io.Writer, color bool) *Formatter {
	return &Formatter{out: out, color: color}
}

// Write renders one diagnostic per line.
func (f *Formatter) Write(ds []*Diagnostic) error {
	for _, d := range ds {
		if _, err := io.WriteString(f.out, f.Line(d)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Line formats a single diagnostic.
func (f *Formatter) Line(d *Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(d.Token.String())
	sb.WriteString(": ")
	if f.color {
		if d.Severity == SeverityWarning {
			sb.WriteString(ansiYellow)
		} else {
			sb.WriteString(ansiRed)
		}
	}
	sb.WriteString(d.Severity.String())
	if f.color {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(" [")
	if f.color {
		sb.WriteString(ansiBold)
	}
	sb.WriteString(string(d.Code))
	if f.color {
		sb.WriteString(ansiReset)
	}
	sb.WriteString("]: ")
	sb.WriteString(d.Message)
	if d.Decl != "" {
		sb.WriteString(fmt.Sprintf(" (in %s)", d.Decl))
	}
	return sb.String()
}
