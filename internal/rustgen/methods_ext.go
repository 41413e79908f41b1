package rustgen

import (
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

const ioOther = "std::io::Error::new(std::io::ErrorKind::Other, "

// externMethod dispatches methods on library instance types. Results of
// methods inference marked fallible stay unsettled.
func (f *funcEmitter) externMethod(e *hir.Expr, d *hir.MethodCallData, rt *types.Type) (string, bool) {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	it := f.e.opts.IntType
	switch rt.Name {
	case types.ExtPattern:
		return f.patternMethod(f.recv(d), d.Method, d.Args, d.Kwargs)
	case types.ExtMatch:
		return f.matchMethod(f.recv(d), d)
	case types.ExtFile:
		return f.fileMethod(d)
	case types.ExtPath:
		return f.pathMethod(d)
	case types.ExtDateTime, types.ExtDate, types.ExtTime:
		return f.chronoMethod(d, rt)
	case types.ExtTimeDelta:
		if d.Method == "total_seconds" {
			return "(" + f.recv(d) + ".num_milliseconds() as f64 / 1000.0)", true
		}
	case types.ExtHasher:
		f.e.need("sha2")
		h := f.recv(d)
		switch d.Method {
		case "update":
			return "sha2::Digest::update(&mut " + f.recvMut(d) + ", " + f.bytesArg(arg(0)) + ")", true
		case "hexdigest":
			f.e.need("hex")
			return "hex::encode(sha2::Digest::finalize(" + h + ".clone()))", true
		case "digest":
			return "sha2::Digest::finalize(" + h + ".clone()).to_vec()", true
		case "copy":
			return h + ".clone()", true
		}
	case types.ExtPopen:
		p := f.recvMut(d)
		switch d.Method {
		case "wait":
			return p + ".wait().map(|s| s.code().unwrap_or(-1) as " + it + ")", true
		case "poll":
			return p + ".try_wait().map(|s| s.and_then(|s| s.code()).map(|c| c as " + it + "))", true
		case "kill", "terminate":
			return p + ".kill()", true
		case "communicate":
			return "(|| -> std::io::Result<(String, String)> { let (mut _o, mut _e) = (String::new(), String::new()); " +
				"if let Some(mut s) = " + p + ".stdout.take() { std::io::Read::read_to_string(&mut s, &mut _o)?; } " +
				"if let Some(mut s) = " + p + ".stderr.take() { std::io::Read::read_to_string(&mut s, &mut _e)?; } " +
				p + ".wait()?; Ok((_o, _e)) })()", true
		}
	case types.ExtCompleted:
		if d.Method == "check_returncode" {
			r := f.recv(d)
			return "if " + r + ".status.success() { Ok(()) } else { Err(" + ioOther + "format!(\"command returned {}\", " + r + ".status))) }", true
		}
	case types.ExtCSVWriter, types.ExtCSVDictWriter:
		return f.csvWriterMethod(d, rt)
	case types.ExtJSON:
		r := f.recv(d)
		switch d.Method {
		case "get":
			return r + ".get(" + f.strArg(arg(0)) + ").cloned()", true
		case "keys":
			return r + ".as_object().map(|o| o.keys().cloned().collect::<Vec<String>>()).unwrap_or_default()", true
		case "values":
			return r + ".as_object().map(|o| o.values().cloned().collect::<Vec<_>>()).unwrap_or_default()", true
		case "items":
			return r + ".as_object().map(|o| o.iter().map(|(k, v)| (k.clone(), v.clone())).collect::<Vec<_>>()).unwrap_or_default()", true
		}
	case types.ExtRandom:
		place := f.recvMut(d)
		if d.Method == "seed" && len(d.Args) == 1 {
			f.e.need("rand")
			return "(" + place + " = <rand::rngs::StdRng as rand::SeedableRng>::seed_from_u64(" + paren(f.expr(d.Args[0])) + " as u64))", true
		}
		return f.randomCall(&modCall{e: e, name: d.Method, args: d.Args, kwargs: d.Kwargs}, "&mut "+place)
	case types.ExtArgParser:
		return f.parserMethod(d)
	}
	return "", false
}

func (f *funcEmitter) matchMethod(c string, d *hir.MethodCallData) (string, bool) {
	it := f.e.opts.IntType
	group := "0"
	if len(d.Args) > 0 {
		g := d.Args[0]
		if g.Type.Kind == types.KindStr {
			get := c + ".name(" + f.strArg(g) + ")"
			switch d.Method {
			case "group":
				return get + ".map_or(String::new(), |m| m.as_str().to_string())", true
			case "start", "end":
				return "(" + get + ".map_or(-1, |m| m." + d.Method + "() as i64) as " + it + ")", true
			}
		}
		group = paren(f.expr(g)) + " as usize"
	}
	get := c + ".get(" + group + ")"
	switch d.Method {
	case "group":
		if len(d.Args) > 1 {
			parts := make([]string, len(d.Args))
			for i, g := range d.Args {
				parts[i] = c + ".get(" + paren(f.expr(g)) + " as usize).map_or(String::new(), |m| m.as_str().to_string())"
			}
			return "(" + strings.Join(parts, ", ") + ")", true
		}
		return get + ".map_or(String::new(), |m| m.as_str().to_string())", true
	case "groups":
		return c + ".iter().skip(1).map(|m| m.map_or(String::new(), |m| m.as_str().to_string())).collect::<Vec<String>>()", true
	case "start", "end":
		return "(" + get + ".map_or(-1, |m| m." + d.Method + "() as i64) as " + it + ")", true
	case "span":
		return get + ".map_or((-1, -1), |m| (m.start() as " + it + ", m.end() as " + it + "))", true
	}
	return "", false
}

func (f *funcEmitter) fileMethod(d *hir.MethodCallData) (string, bool) {
	h := f.recvMut(d)
	if h == "std::io::stdin()" || h == "std::io::stdout()" || h == "std::io::stderr()" {
		h = "(&mut " + h + ")"
	} else {
		h = "&mut " + h
	}
	read := "{ let mut _s = String::new(); std::io::Read::read_to_string(" + h + ", &mut _s).map(|_| _s) }"
	switch d.Method {
	case "read":
		return read, true
	case "readline":
		return "(|| -> std::io::Result<String> { let mut _s = Vec::new(); let mut _b = [0u8; 1]; " +
			"while std::io::Read::read(" + h + ", &mut _b)? == 1 { _s.push(_b[0]); if _b[0] == b'\\n' { break; } } " +
			"Ok(String::from_utf8_lossy(&_s).to_string()) })()", true
	case "readlines":
		return read + ".map(|s| s.split_inclusive('\\n').map(|l| l.to_string()).collect::<Vec<String>>())", true
	case "write":
		if len(d.Args) == 0 {
			return "", false
		}
		return "std::io::Write::write_all(" + h + ", " + f.bytesArg(d.Args[0]) + ")", true
	case "writelines":
		if len(d.Args) == 0 {
			return "", false
		}
		return f.iterSource(d.Args[0]) + ".try_for_each(|l| std::io::Write::write_all(" + h + ", l.as_bytes()))", true
	case "flush":
		return "std::io::Write::flush(" + h + ")", true
	case "close":
		return "()", true
	}
	return "", false
}

func (f *funcEmitter) pathMethod(d *hir.MethodCallData) (string, bool) {
	p := f.recv(d)
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch d.Method {
	case "exists", "is_file", "is_dir", "is_absolute":
		return p + "." + d.Method + "()", true
	case "read_text":
		return "std::fs::read_to_string(&" + p + ")", true
	case "read_bytes":
		return "std::fs::read(&" + p + ")", true
	case "write_text", "write_bytes":
		return "std::fs::write(&" + p + ", " + f.bytesArg(arg(0)) + ")", true
	case "mkdir":
		if v, _ := boolLit(d.Kwarg("parents")); v {
			return "std::fs::create_dir_all(&" + p + ")", true
		}
		if v, _ := boolLit(d.Kwarg("exist_ok")); v {
			return "std::fs::create_dir(&" + p + ").or_else(|e| if e.kind() == std::io::ErrorKind::AlreadyExists { Ok(()) } else { Err(e) })", true
		}
		return "std::fs::create_dir(&" + p + ")", true
	case "unlink":
		return "std::fs::remove_file(&" + p + ")", true
	case "rmdir":
		return "std::fs::remove_dir(&" + p + ")", true
	case "touch":
		return "std::fs::OpenOptions::new().create(true).append(true).open(&" + p + ").map(|_| ())", true
	case "joinpath":
		s := p
		for _, a := range d.Args {
			s += ".join(" + f.pathPart(a) + ")"
		}
		return s, true
	case "resolve":
		return "std::fs::canonicalize(&" + p + ")", true
	case "absolute":
		return "std::env::current_dir().unwrap_or_default().join(&" + p + ")", true
	case "with_suffix":
		return p + ".with_extension(" + atom(f.strArg(arg(0))) + ".trim_start_matches('.'))", true
	case "with_name":
		return p + ".with_file_name(" + f.strArg(arg(0)) + ")", true
	case "expanduser":
		return "std::path::PathBuf::from(" + p + ".display().to_string().replacen('~', &std::env::var(\"HOME\").unwrap_or_default(), 1))", true
	case "iterdir":
		return "std::fs::read_dir(&" + p + ").map(|rd| rd.filter_map(|e| e.ok().map(|e| e.path())).collect::<Vec<_>>())", true
	case "glob", "rglob":
		return f.pathGlob(p, arg(0), d.Method == "rglob"), true
	case "open":
		mode := "r"
		if m := arg(0); m != nil {
			if lit, ok := m.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
				mode = lit.Text
			}
		}
		switch {
		case strings.Contains(mode, "a"):
			return "std::fs::OpenOptions::new().append(true).create(true).open(&" + p + ")", true
		case strings.Contains(mode, "w"):
			return "std::fs::File::create(&" + p + ")", true
		}
		return "std::fs::File::open(&" + p + ")", true
	}
	return "", false
}

// pathGlob lists directory entries whose names match a "*suffix" or
// exact pattern.
func (f *funcEmitter) pathGlob(p string, pat *hir.Expr, recursive bool) string {
	match := "true"
	if pat != nil {
		if lit, ok := pat.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			text := strings.TrimPrefix(lit.Text, "**/")
			switch {
			case text == "*":
			case strings.HasPrefix(text, "*") && !strings.ContainsAny(text[1:], "*?["):
				match = "_n.ends_with(" + quote(text[1:]) + ")"
			case !strings.ContainsAny(text, "*?["):
				match = "_n == " + quote(text)
			default:
				f.report(diag.MthUnknownMethod, pat.Span, "glob pattern %q matches every entry", lit.Text)
			}
		}
	}
	push := ""
	if recursive {
		push = "if _p.is_dir() { _dirs.push(_p.clone()); } "
	}
	return "(|| -> std::io::Result<Vec<std::path::PathBuf>> { let mut _out = Vec::new(); let mut _dirs = vec![" + p + ".clone()]; " +
		"while let Some(_d) = _dirs.pop() { for _e in std::fs::read_dir(&_d)? { let _p = _e?.path(); " + push +
		"let _n = _p.file_name().map(|s| s.to_string_lossy().to_string()).unwrap_or_default(); if " + match + " { _out.push(_p); } } } " +
		"_out.sort(); Ok(_out) })()"
}

func (f *funcEmitter) chronoMethod(d *hir.MethodCallData, rt *types.Type) (string, bool) {
	r := f.recv(d)
	it := f.e.opts.IntType
	switch d.Method {
	case "strftime":
		if len(d.Args) == 0 {
			return "", false
		}
		return r + ".format(" + f.strArg(d.Args[0]) + ").to_string()", true
	case "isoformat":
		layout := "%Y-%m-%dT%H:%M:%S"
		switch rt.Name {
		case types.ExtDate:
			layout = "%Y-%m-%d"
		case types.ExtTime:
			layout = "%H:%M:%S"
		}
		return r + ".format(" + quote(layout) + ").to_string()", true
	case "date":
		return r + ".date_naive()", true
	case "time":
		return r + ".time()", true
	case "timestamp":
		return "(" + r + ".timestamp_millis() as f64 / 1000.0)", true
	case "weekday":
		return "(chrono::Datelike::weekday(&" + r + ").num_days_from_monday() as " + it + ")", true
	case "isoweekday":
		return "(chrono::Datelike::weekday(&" + r + ").number_from_monday() as " + it + ")", true
	case "replace":
		s := r + ".clone()"
		for _, kw := range d.Kwargs {
			v := paren(f.expr(kw.Value))
			switch kw.Name {
			case "year":
				s = "chrono::Datelike::with_year(&" + s + ", " + v + ").expect(\"invalid year\")"
			case "month", "day":
				s = "chrono::Datelike::with_" + kw.Name + "(&" + s + ", " + v + " as u32).expect(\"invalid " + kw.Name + "\")"
			case "hour", "minute", "second":
				s = "chrono::Timelike::with_" + kw.Name + "(&" + s + ", " + v + " as u32).expect(\"invalid " + kw.Name + "\")"
			case "microsecond":
				s = "chrono::Timelike::with_nanosecond(&" + s + ", " + v + " as u32 * 1000).expect(\"invalid microsecond\")"
			}
		}
		return s, true
	}
	return "", false
}

func (f *funcEmitter) csvWriterMethod(d *hir.MethodCallData, rt *types.Type) (string, bool) {
	w := f.recvMut(d)
	cols := f.csvCols[hir.RootName(d.Recv)]
	if rt.IsExtern(types.ExtCSVDictWriter) {
		if cols == "" {
			f.report(diag.MthUnknownMethod, d.Recv.Span, "DictWriter without literal fieldnames")
			cols = "Vec::<String>::new()"
		}
		row := func(r string) string {
			return w + ".write_record(" + atom(cols) + ".iter().map(|k| " + r + ".get(k.as_str()).map(|v| v.to_string()).unwrap_or_default()))"
		}
		switch d.Method {
		case "writeheader":
			return w + ".write_record(&" + atom(cols) + ")", true
		case "writerow":
			return "{ let _row = &" + atom(f.expr(d.Args[0])) + "; " + row("_row") + " }", true
		case "writerows":
			return f.iterSource(d.Args[0]) + ".try_for_each(|_row| " + row("_row") + ")", true
		}
		return "", false
	}
	switch d.Method {
	case "writerow":
		return w + ".write_record(" + f.csvRecord(d.Args[0]) + ")", true
	case "writerows":
		return f.iterSource(d.Args[0]) + ".try_for_each(|_r| " + w + ".write_record(_r.iter().map(|x| x.to_string())))", true
	}
	return "", false
}

// csvRecord spells a row argument as an iterator of byte-like fields.
func (f *funcEmitter) csvRecord(row *hir.Expr) string {
	if lst, ok := row.Data.(*hir.ElemsData); ok {
		parts := make([]string, len(lst.Elems))
		for i, el := range lst.Elems {
			parts[i] = f.toStr(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if types.ElemOf(row.Type).Kind == types.KindStr {
		return f.refArg(row)
	}
	return atom(f.expr(row)) + ".iter().map(|x| x.to_string())"
}

// externAttr spells attributes of library instance types.
func (f *funcEmitter) externAttr(base string, bt *types.Type, name string, e *hir.Expr) (string, bool) {
	if bt.Kind != types.KindExtern {
		return "", false
	}
	it := f.e.opts.IntType
	lossy := ".map(|s| s.to_string_lossy().to_string()).unwrap_or_default()"
	switch bt.Name {
	case types.ExtCompleted:
		switch name {
		case "returncode":
			return "(" + base + ".status.code().unwrap_or(-1) as " + it + ")", true
		case "stdout", "stderr":
			return "String::from_utf8_lossy(&" + base + "." + name + ").to_string()", true
		case "args":
			f.record(trace.DecisionTypeMapping, "Vec<String>", "process output does not keep its argv", e.Span)
			return "Vec::<String>::new()", true
		}
	case types.ExtPopen:
		switch name {
		case "returncode":
			return base + ".try_wait().ok().flatten().and_then(|s| s.code()).map(|c| c as " + it + ")", true
		case "pid":
			return "(" + base + ".id() as " + it + ")", true
		}
	case types.ExtPath:
		switch name {
		case "name":
			return base + ".file_name()" + lossy, true
		case "stem":
			return base + ".file_stem()" + lossy, true
		case "suffix":
			return base + ".extension().map(|s| format!(\".{}\", s.to_string_lossy())).unwrap_or_default()", true
		case "parent":
			return base + ".parent().map(|p| p.to_path_buf()).unwrap_or_default()", true
		case "parts":
			return base + ".components().map(|c| c.as_os_str().to_string_lossy().to_string()).collect::<Vec<String>>()", true
		}
	case types.ExtDateTime, types.ExtDate, types.ExtTime:
		switch name {
		case "year":
			return "(chrono::Datelike::year(&" + base + ") as " + it + ")", true
		case "month", "day":
			return "(chrono::Datelike::" + name + "(&" + base + ") as " + it + ")", true
		case "hour", "minute", "second":
			return "(chrono::Timelike::" + name + "(&" + base + ") as " + it + ")", true
		case "microsecond":
			return "((chrono::Timelike::nanosecond(&" + base + ") / 1000) as " + it + ")", true
		}
	case types.ExtTimeDelta:
		switch name {
		case "days":
			return "(" + base + ".num_days() as " + it + ")", true
		case "seconds":
			return "((" + base + ".num_seconds() % 86400) as " + it + ")", true
		case "microseconds":
			return "((" + base + ".num_microseconds().unwrap_or(0) % 1_000_000) as " + it + ")", true
		}
	case types.ExtNamespace:
		return f.namespaceAttr(base, name, e.Type), true
	case types.ExtCSVDictReader:
		if name == "fieldnames" {
			return base + ".headers().map(|h| h.iter().map(|s| s.to_string()).collect::<Vec<String>>()).unwrap_or_default()", true
		}
	}
	return "", false
}
