package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/layout"
	"github.com/structlay/structlay/typedesc"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	numStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		defFile     = flag.String("def", "", "Path to struct definition file")
		platName    = flag.String("platform", "wasm32", "Target platform: wasm32, linux-amd64, win64, darwin-ppc32")
		modeName    = flag.String("mode", "", "Alignment mode override: none, native, strict")
		structName  = flag.String("struct", "", "Only show the named struct")
		showTree    = flag.Bool("tree", false, "Print call-interface descriptor trees")
		interactive = flag.Bool("i", false, "Interactive layout browser")
	)
	flag.Parse()

	if *defFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: structlay -def <file> [-platform name] [-mode name] [-struct name] [-tree]")
		fmt.Fprintln(os.Stderr, "       structlay -def <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*defFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*defFile, *platName, *modeName, *structName, *showTree); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(defFile, platName, modeName, structName string, showTree bool) error {
	f, err := os.Open(defFile)
	if err != nil {
		return fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	cat, err := parseCatalog(f)
	if err != nil {
		return fmt.Errorf("parse definitions: %w", err)
	}

	plat, ok := abi.ByName(platName)
	if !ok {
		return fmt.Errorf("unknown platform %q", platName)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii) // plain output when piped
	}

	calc := layout.NewCalculator(plat)
	builder := typedesc.NewBuilder(plat)

	for _, def := range cat.defs {
		if structName != "" && def.Name != structName {
			continue
		}
		if modeName != "" {
			mode, ok := abi.ModeByName(modeName)
			if !ok {
				return fmt.Errorf("unknown mode %q", modeName)
			}
			def = def.WithMode(mode)
		}

		l, err := calc.Compute(def, cat.lens(def), true)
		if err != nil {
			return fmt.Errorf("layout %s: %w", def.Name, err)
		}
		fmt.Println(renderLayout(plat, l))

		if showTree {
			d, err := builder.Build(l)
			if err != nil {
				return fmt.Errorf("descriptor %s: %w", def.Name, err)
			}
			fmt.Println(renderTree(def.Name, d))
		}
	}
	return nil
}

func renderLayout(plat abi.Platform, l *layout.Layout) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  [%s, %s]", l.Def.Name, plat.Name, l.Mode)))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%-16s %-20s %8s %8s %8s", "FIELD", "TYPE", "OFFSET", "SIZE", "ALIGN")))

	for i := range l.Slots {
		slot := &l.Slots[i]
		name := slot.Desc.Name
		if slot.Desc.Volatile {
			name += " (volatile)"
		}
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-16s", name)),
			typeStyle.Render(fmt.Sprintf("%-20s", slot.Desc.TypeName())),
			numStyle.Render(fmt.Sprintf("%8d", slot.Offset)),
			numStyle.Render(fmt.Sprintf("%8d", slot.Size)),
			numStyle.Render(fmt.Sprintf("%8d", slot.Align)),
		)
	}
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("total size %d, align %d", l.Size, l.Align)))
	return b.String()
}

func renderTree(name string, d *typedesc.Descriptor) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("descriptor tree for " + name))
	b.WriteByte('\n')
	writeTree(&b, d, 0)
	return b.String()
}

func writeTree(b *strings.Builder, d *typedesc.Descriptor, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s (size %d, align %d)\n",
		indent, typeStyle.Render(d.Kind.String()), d.Size, d.Align)
	for _, e := range d.Elements {
		writeTree(b, e, depth+1)
	}
}
