package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/fusecheck/internal/check"
	"github.com/roach88/fusecheck/internal/detect"
	"github.com/roach88/fusecheck/internal/fuse"
	"github.com/roach88/fusecheck/internal/fusedb"
	"github.com/roach88/fusecheck/internal/history"
	"github.com/roach88/fusecheck/internal/verdict"
	"github.com/roach88/fusecheck/internal/version"
)

// FuseMapPageSize is the number of fuse records per fuse map page.
const FuseMapPageSize = 15

const labelWidth = 16

// theme holds the report styles. Colours follow the device screen: cyan
// values, white text, red failures.
type theme struct {
	title  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	accent lipgloss.Style
}

// newTheme binds styles to w so that colour is dropped when w is not a
// terminal.
func newTheme(w io.Writer) theme {
	r := lipgloss.NewRenderer(w)
	cyan := lipgloss.Color("14")
	red := lipgloss.Color("9")
	white := lipgloss.Color("15")

	return theme{
		title:  r.NewStyle().Foreground(cyan).Bold(true),
		label:  r.NewStyle().Foreground(white),
		value:  r.NewStyle().Foreground(cyan),
		good:   r.NewStyle().Foreground(cyan).Bold(true),
		bad:    r.NewStyle().Foreground(red).Bold(true),
		accent: r.NewStyle().Foreground(cyan),
	}
}

func (t theme) field(b *strings.Builder, label, value string) {
	b.WriteString(t.label.Render(label))
	b.WriteString(strings.Repeat(" ", max(labelWidth-len(label), 1)))
	b.WriteString(t.value.Render(value))
	b.WriteByte('\n')
}

func describeDetection(r detect.Result) string {
	if r.Found() && r.Record != nil {
		return "detected from " + r.Record.Filename
	}
	return fmt.Sprintf("not detected: %s, assuming %s", r.Outcome, version.Default)
}

func describeDatabase(r fusedb.LoadResult) string {
	if r.Status != fusedb.StatusLoaded {
		return r.Status.String()
	}
	s := fmt.Sprintf("%d NCA, %d FUSE records", r.NCA, r.Fuse)
	if n := r.Skipped.Total(); n > 0 {
		s += fmt.Sprintf(", %d lines skipped", n)
	}
	return s
}

// report renders a check result the way the device screen lays it out.
func (t theme) report(r *check.Report) string {
	var b strings.Builder

	b.WriteString(t.title.Render("NINTENDO SWITCH FUSE CHECKER"))
	b.WriteString("\n\n")

	t.field(&b, "Firmware:", fmt.Sprintf("%s (%s)", r.Firmware, describeDetection(r.Detection)))
	t.field(&b, "Burnt Fuses:", fmt.Sprintf("%d", r.Fuses.Burnt))
	t.field(&b, "Required Fuses:", fmt.Sprintf("%d", r.Required))
	t.field(&b, "Database:", describeDatabase(r.Database))
	b.WriteByte('\n')

	t.guidance(&b, r.Verdict)
	return b.String()
}

func (t theme) guidance(b *strings.Builder, v verdict.Verdict) {
	status := t.bad
	if v.Pass() {
		status = t.good
	}
	b.WriteString(status.Render(v.Status()))
	b.WriteByte('\n')

	for _, line := range v.Guidance() {
		if strings.HasPrefix(line, "What will work") {
			b.WriteString(t.accent.Render(line))
		} else {
			b.WriteString(t.label.Render(line))
		}
		b.WriteByte('\n')
	}
}

// requiredOutput is the result of the required command.
type requiredOutput struct {
	Version  version.Version `json:"version"`
	Required uint8           `json:"required"`
	Rule     *fuse.Rule      `json:"rule,omitempty"`
}

func (t theme) required(out requiredOutput) string {
	var b strings.Builder
	t.field(&b, "Firmware:", out.Version.String())
	t.field(&b, "Required Fuses:", fmt.Sprintf("%d", out.Required))
	if out.Rule != nil {
		r := out.Rule
		t.field(&b, "Rule:", fmt.Sprintf("%d.%d-%d.%d", r.MajorMin, r.MinorMin, r.MajorMax, r.MinorMax))
	} else {
		t.field(&b, "Rule:", "none, using default")
	}
	return b.String()
}

// detectOutput is the result of the detect command.
type detectOutput struct {
	Firmware  version.Version   `json:"firmware"`
	Detected  bool              `json:"detected"`
	Detection detect.Result     `json:"detection"`
	Database  fusedb.LoadResult `json:"database"`
}

func (t theme) detection(out detectOutput) string {
	var b strings.Builder
	t.field(&b, "Firmware:", out.Firmware.String())
	t.field(&b, "Detection:", describeDetection(out.Detection))
	if out.Detection.Scanned > 0 {
		t.field(&b, "Scanned:", fmt.Sprintf("%d files", out.Detection.Scanned))
	}
	t.field(&b, "Database:", describeDatabase(out.Database))
	return b.String()
}

// fuseMapOutput is one page of the fuse map.
type fuseMapOutput struct {
	Records []fusedb.FuseRecord `json:"records"`
	Start   int                 `json:"start"`
	Total   int                 `json:"total"`
	Path    string              `json:"path"`
}

func (t theme) fuseMap(out fuseMapOutput) string {
	var b strings.Builder

	b.WriteString(t.title.Render("SWITCHBREW FUSE MAP"))
	b.WriteString("\n\n")

	if out.Total == 0 {
		b.WriteString(t.bad.Render("Database file not found!"))
		b.WriteByte('\n')
		b.WriteString(t.label.Render("Please copy fusecheck_db.txt to:"))
		b.WriteByte('\n')
		b.WriteString(t.label.Render("sd:/" + out.Path))
		b.WriteByte('\n')
		return b.String()
	}

	b.WriteString(t.accent.Render(fmt.Sprintf("%-32s %10s %10s", "System Version", "Prod Fuses", "Dev Fuses")))
	b.WriteByte('\n')
	for _, rec := range out.Records {
		b.WriteString(t.label.Render(fmt.Sprintf("%-32s", rec.Range)))
		b.WriteString(t.value.Render(fmt.Sprintf(" %10d %10d", rec.Prod, rec.Dev)))
		b.WriteByte('\n')
	}

	if out.Total > FuseMapPageSize {
		end := out.Start + len(out.Records)
		b.WriteByte('\n')
		b.WriteString(t.accent.Render(fmt.Sprintf("[%d-%d/%d]", out.Start+1, end, out.Total)))
		b.WriteByte('\n')
	}
	return b.String()
}

func (t theme) loadResult(r fusedb.LoadResult) string {
	var b strings.Builder
	t.field(&b, "Database:", r.Path)
	t.field(&b, "Status:", r.Status.String())
	t.field(&b, "Lines:", fmt.Sprintf("%d", r.Lines))
	t.field(&b, "NCA records:", fmt.Sprintf("%d", r.NCA))
	t.field(&b, "FUSE records:", fmt.Sprintf("%d", r.Fuse))
	t.field(&b, "Skipped:", fmt.Sprintf("%d malformed, %d overflow, %d unknown",
		r.Skipped.Malformed, r.Skipped.Overflow, r.Skipped.Unknown))
	if r.Skipped.Truncated > 0 {
		t.field(&b, "Truncated:", fmt.Sprintf("%d lines", r.Skipped.Truncated))
	}
	return b.String()
}

func (t theme) history(entries []history.Entry) string {
	if len(entries) == 0 {
		return t.label.Render("No checks recorded") + "\n"
	}

	var b strings.Builder
	b.WriteString(t.accent.Render(fmt.Sprintf("%-5s %-36s %-8s %5s %8s  %s", "SEQ", "ID", "FIRMWARE", "BURNT", "REQUIRED", "VERDICT")))
	b.WriteByte('\n')
	for _, e := range entries {
		style := t.value
		if e.Verdict != verdict.Match.String() {
			style = t.bad
		}
		b.WriteString(t.label.Render(fmt.Sprintf("%-5d %-36s %-8s %5d %8d  ", e.Seq, e.ID, e.Firmware, e.Burnt, e.Required)))
		b.WriteString(style.Render(e.Verdict))
		b.WriteByte('\n')
	}
	return b.String()
}
