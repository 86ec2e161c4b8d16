package structure

import (
	"fmt"
	"strings"
)

// String renders a diagnostic view of the structure: one line per field with
// its type, offset and cached logical value, followed by a hex dump of the
// backing memory in four-byte rows. Unsizeable or unbound instances render a
// short placeholder instead of failing.
func (s *Instance) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s(addr=%#x, mode=%s) {\n", s.def.Name, s.Addr(), s.def.Mode)

	l, err := s.resolveLayout(false)
	if err != nil || l == nil {
		b.WriteString("  <layout not yet determinable>\n}")
		return b.String()
	}

	for i := range l.Slots {
		slot := &l.Slots[i]
		v, _ := s.Get(slot.Desc.Name)
		fmt.Fprintf(&b, "  %s %s@%d=%s\n",
			slot.Desc.TypeName(), slot.Desc.Name, slot.Offset, formatValue(v))
	}
	b.WriteString("}")

	if s.region == nil {
		b.WriteString("\n<unbound>")
		return b.String()
	}

	fmt.Fprintf(&b, "\nmemory dump (%d bytes)", l.Size)
	data, err := s.region.ReadBytes(0, l.Size)
	if err != nil {
		fmt.Fprintf(&b, "\n<unreadable: %v>", err)
		return b.String()
	}
	for off := 0; off < len(data); off += 4 {
		b.WriteString("\n[")
		for i := off; i < off+4 && i < len(data); i++ {
			if i > off {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02x", data[i])
		}
		b.WriteByte(']')
	}
	return b.String()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "<unset>"
	case *Instance:
		return fmt.Sprintf("%s@%#x", t.def.Name, t.Addr())
	case string:
		return fmt.Sprintf("%q", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
