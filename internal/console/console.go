// Package console renders shell output and session reports. Every write goes
// through one lock so a report block is never split by another session.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/estelamoura/unimrcp/internal/session"
)

type styles struct {
	prompt  lipgloss.Style
	params  lipgloss.Style
	banner  lipgloss.Style
	result  lipgloss.Style
	null    lipgloss.Style
	errText lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		prompt:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),  // cyan
		params:  r.NewStyle().Foreground(lipgloss.Color("8")),             // gray
		banner:  r.NewStyle().Bold(true),                                  // bold
		result:  r.NewStyle().Foreground(lipgloss.Color("2")),             // green
		null:    r.NewStyle().Foreground(lipgloss.Color("3")),             // yellow
		errText: r.NewStyle().Foreground(lipgloss.Color("1")),             // red
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")).Faint(true), // dim yellow
	}
}

// Printer writes to the operator console. It implements session.Reporter.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	st  styles
}

// New returns a printer for out. Colors are only emitted when out is a
// color-capable terminal.
func New(out io.Writer) *Printer {
	return &Printer{out: out, st: newStyles(lipgloss.NewRenderer(out))}
}

func (p *Printer) write(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		_, _ = io.WriteString(p.out, line)
	}
}

// Prompt writes the shell prompt on a fresh line.
func (p *Printer) Prompt(prompt string) {
	p.write("\n", p.st.prompt.Render(prompt))
}

// Print writes text followed by a newline. Multi-line text is written as is.
func (p *Printer) Print(text string) {
	p.write(strings.TrimRight(text, "\n"), "\n")
}

// Error writes an `error: ...` diagnostic.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	p.write(p.st.errText.Render("error: "+err.Error()), "\n")
}

// Warn writes a `warning: ...` diagnostic.
func (p *Printer) Warn(message string) {
	p.write(p.st.warn.Render("warning: "+message), "\n")
}

// Launched prints the staged parameters of a new session.
func (p *Printer) Launched(desc session.Descriptor) {
	line := fmt.Sprintf("Parameters: %s - %s - %d - %s", desc.GrammarURI, desc.InputFile, desc.Repetitions, desc.Profile)
	p.write("\n", p.st.params.Render(line), "\n")
}

// Pass prints the timing of one recognition pass and its result, or the
// Result NULL marker when the pass produced none.
func (p *Printer) Pass(report session.PassReport) {
	banner := fmt.Sprintf("*** (Session %d) Profile: %s. Recognition %d finished. Elapsed time %.2f seconds.",
		report.SessionID, report.Profile, report.Pass, report.Elapsed.Seconds())

	lines := []string{"\n", p.st.banner.Render(banner), "\n"}
	if report.Found() {
		lines = append(lines, p.st.result.Render("***** Result: "+report.Result.Text), "\n")
	} else {
		lines = append(lines, p.st.null.Render("***** Result NULL"), "\n")
	}
	if report.Err != nil {
		lines = append(lines, p.st.errText.Render("error: "+report.Err.Error()), "\n")
	}
	p.write(lines...)
}

// Failed prints a session that ended before its first pass.
func (p *Printer) Failed(sessionID int, profile string, err error) {
	line := fmt.Sprintf("error: (Session %d) Profile: %s. %v", sessionID, profile, err)
	p.write("\n", p.st.errText.Render(line), "\n")
}
