package reporting

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders human-readable console output for the CLI. It knows
// nothing about domain types; callers feed it sections and facts.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Header prints a boxed title.
func (p *Printer) Header(title string) {
	line := strings.Repeat("=", len(title)+4)
	fmt.Fprintf(p.out, "%s\n  %s\n%s\n", line, title, line)
}

// Section prints a section heading.
func (p *Printer) Section(title string) {
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// Bullet prints one bulleted line.
func (p *Printer) Bullet(format string, args ...any) {
	fmt.Fprintf(p.out, "  - "+format+"\n", args...)
}

// KV prints an aligned key-value line.
func (p *Printer) KV(key string, format string, args ...any) {
	fmt.Fprintf(p.out, "  %-22s %s\n", key+":", fmt.Sprintf(format, args...))
}

// Line prints a plain line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.out)
}
