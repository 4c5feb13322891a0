package parser

import (
	"strings"

	"github.com/jptrs93/pbgen/internal/ir"
)

func (b *builder) options(opts []*option) ([]ir.Option, error) {
	var out []ir.Option
	for _, o := range opts {
		opt, err := b.option(o)
		if err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, nil
}

func (b *builder) option(o *option) (ir.Option, error) {
	out := ir.Option{Name: o.Name, Pos: b.pos(o.Pos)}
	v := o.Value
	switch {
	case len(v.Strings) > 0:
		var sb strings.Builder
		for _, raw := range v.Strings {
			s, err := unquote(raw)
			if err != nil {
				return ir.Option{}, syntaxErrorf(b.pos(v.Pos), "invalid string %s for option '%s'", raw, o.Name)
			}
			sb.WriteString(s)
		}
		out.Kind = ir.OptionString
		out.Value = sb.String()
	case v.Float != nil:
		out.Kind = ir.OptionFloat
		out.Value = *v.Float
	case v.Int != nil:
		out.Kind = ir.OptionInt
		out.Value = *v.Int
	case v.Signed != nil:
		switch strings.TrimLeft(*v.Signed, "+-") {
		case "inf", "nan":
			out.Kind = ir.OptionFloat
			out.Value = *v.Signed
		default:
			return ir.Option{}, syntaxErrorf(b.pos(v.Pos), "invalid value %s for option '%s'", *v.Signed, o.Name)
		}
	case v.Aggregate != nil:
		out.Kind = ir.OptionAggregate
		out.Value = v.Aggregate.text()
	case v.Ident != nil:
		switch *v.Ident {
		case "true", "false":
			out.Kind = ir.OptionBool
		case "inf", "nan":
			out.Kind = ir.OptionFloat
		default:
			out.Kind = ir.OptionIdent
		}
		out.Value = *v.Ident
	}
	return out, nil
}

func (a *aggregate) text() string {
	parts := []string{"{"}
	for _, t := range a.Tokens {
		if t.Nested != nil {
			parts = append(parts, t.Nested.text())
			continue
		}
		parts = append(parts, t.Token)
	}
	parts = append(parts, "}")
	return strings.Join(parts, " ")
}

func findOption(options []ir.Option, name string) (ir.Option, bool) {
	for _, o := range options {
		if o.Name == name {
			return o, true
		}
	}
	return ir.Option{}, false
}

// GoPackage returns the Go package name carried by the go_package file
// option: the part after ';' when present, else the last path element.
func GoPackage(file *ir.File) string {
	opt, ok := file.Option("go_package")
	if !ok || opt.Kind != ir.OptionString {
		return ""
	}
	goPkg := opt.Value
	if goPkg == "" {
		return ""
	}
	if strings.Contains(goPkg, ";") {
		parts := strings.Split(goPkg, ";")
		return parts[len(parts)-1]
	}
	goPkg = strings.TrimSuffix(goPkg, "/")
	if idx := strings.LastIndex(goPkg, "/"); idx != -1 {
		return goPkg[idx+1:]
	}
	return goPkg
}
