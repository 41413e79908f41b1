package diag

import "github.com/paiml/depyler-sub011/internal/source"

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding attached to a source span.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// Newf builds a diagnostic with the code's default severity.
func Newf(code Code, primary source.Span, format string, args ...any) Diagnostic {
	return New(code.DefaultSeverity(), code, primary, sprintf(format, args...))
}

func (d Diagnostic) Category() Category { return d.Code.Category() }

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
