package rotini

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	colorHeading = color.Bold
	colorError   = color.FgRed
)

type helpRow struct {
	left, right string
}

// writeRows prints two aligned columns, indented by two spaces
func writeRows(b *strings.Builder, rows []helpRow) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.left))
	}
	for _, r := range rows {
		if r.right == "" {
			fmt.Fprintf(b, "  %s\n", r.left)
			continue
		}
		fmt.Fprintf(b, "  %-*s   %s\n", width, r.left, r.right)
	}
}

func (p *Program) heading(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(p.io.Style(colorHeading).Sprint(title + ":"))
	b.WriteString("\n")
}

func flagRows(flags []*Flag) []helpRow {
	rows := make([]helpRow, 0, len(flags))
	for _, f := range flags {
		desc := f.description
		if len(f.values) > 0 {
			desc += " (allowed: " + formatValues(f.values) + ")"
		}
		if f.hasDefault {
			desc += fmt.Sprintf(" (default: %v)", f.def)
		}
		if f.required {
			desc += " (required)"
		}
		rows = append(rows, helpRow{left: f.Usage(), right: desc})
	}
	return rows
}

func commandRows(cmds []*Command) []helpRow {
	rows := make([]helpRow, 0, len(cmds))
	for _, c := range cmds {
		desc := c.description
		if len(c.aliases) > 0 {
			desc += " (aliases: " + strings.Join(c.aliases, ", ") + ")"
		}
		if c.deprecated {
			desc += " (deprecated)"
		}
		rows = append(rows, helpRow{left: c.name, right: desc})
	}
	return rows
}

func argumentUsage(a *Argument) string {
	if a.variant == ArgumentVariadic {
		return "<" + a.name + ">..."
	}
	return "<" + a.name + ">"
}

// ProgramHelp renders the top-level help
func (p *Program) ProgramHelp() string {
	var b strings.Builder
	b.WriteString(p.description)
	b.WriteString("\n")

	p.heading(&b, "Usage")
	usage := "  " + p.name
	if len(p.commands) > 0 {
		usage += " [command]"
	}
	if len(p.globalFlags) > 0 {
		usage += " [flags]"
	}
	b.WriteString(usage + "\n")

	if len(p.commands) > 0 {
		p.heading(&b, "Commands")
		writeRows(&b, commandRows(p.commands))
	}
	if len(p.globalFlags) > 0 {
		p.heading(&b, "Global Flags")
		writeRows(&b, flagRows(p.globalFlags))
	}
	p.heading(&b, "Flags")
	writeRows(&b, flagRows(p.positionalFlags))

	if len(p.commands) > 0 {
		fmt.Fprintf(&b, "\nUse \"%s [command] --help\" for more information about a command.\n", p.name)
	}
	return b.String()
}

// CommandHelp renders the help of one command
func (p *Program) CommandHelp(c *Command) string {
	var b strings.Builder
	b.WriteString(c.description)
	b.WriteString("\n")
	if c.deprecated {
		b.WriteString("\nThis command is deprecated.\n")
	}

	p.heading(&b, "Usage")
	usage := []string{p.name, c.path}
	for _, a := range c.arguments {
		usage = append(usage, argumentUsage(a))
	}
	if len(c.commands) > 0 {
		usage = append(usage, "[command]")
	}
	usage = append(usage, "[flags]")
	b.WriteString("  " + strings.Join(usage, " ") + "\n")

	if len(c.aliases) > 0 {
		p.heading(&b, "Aliases")
		b.WriteString("  " + strings.Join(c.aliases, ", ") + "\n")
	}

	if len(c.arguments) > 0 {
		p.heading(&b, "Arguments")
		rows := make([]helpRow, 0, len(c.arguments))
		for _, a := range c.arguments {
			desc := fmt.Sprintf("%s (%s)", a.description, a.typ)
			if len(a.values) > 0 {
				desc += " (allowed: " + formatValues(a.values) + ")"
			}
			rows = append(rows, helpRow{left: a.name, right: desc})
		}
		writeRows(&b, rows)
	}

	p.heading(&b, "Flags")
	writeRows(&b, flagRows(c.flags))

	if len(p.globalFlags) > 0 {
		p.heading(&b, "Global Flags")
		writeRows(&b, flagRows(p.globalFlags))
	}

	if len(c.commands) > 0 {
		p.heading(&b, "Commands")
		writeRows(&b, commandRows(c.commands))
	}

	if len(c.examples) > 0 {
		p.heading(&b, "Examples")
		for _, e := range c.examples {
			b.WriteString("  " + e + "\n")
		}
	}

	if len(c.commands) > 0 {
		fmt.Fprintf(&b, "\nUse \"%s %s [command] --help\" for more information about a command.\n", p.name, c.path)
	}
	return b.String()
}

// helpFor renders the help a parse error or help request refers to
func (p *Program) helpFor(c *Command) string {
	if c == nil {
		return p.ProgramHelp()
	}
	return p.CommandHelp(c)
}
