package toolchain

import "strings"

// List tokens expanded into zero or more arguments.
const (
	TokenSources = "@sources"
	TokenTests   = "@tests"
	TokenParams  = "@params"
)

// Vars are the scalar placeholder values of one invocation.
type Vars struct {
	Output    string
	Classpath string
	Source    string
	Module    string
	Report    string
	Target    string
}

// Lists are the list token values of one invocation.
type Lists struct {
	Sources []string
	Tests   []string
	Params  []string
}

// Expand renders a command template into an argument vector.
func Expand(template []string, v Vars, l Lists) []string {
	r := strings.NewReplacer(
		"{output}", v.Output,
		"{classpath}", v.Classpath,
		"{source}", v.Source,
		"{module}", v.Module,
		"{report}", v.Report,
		"{target}", v.Target,
	)
	out := make([]string, 0, len(template)+len(l.Sources)+len(l.Tests)+len(l.Params))
	for _, arg := range template {
		switch arg {
		case TokenSources:
			out = append(out, l.Sources...)
		case TokenTests:
			out = append(out, l.Tests...)
		case TokenParams:
			out = append(out, l.Params...)
		default:
			out = append(out, r.Replace(arg))
		}
	}
	return out
}
