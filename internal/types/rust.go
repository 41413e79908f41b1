package types

import (
	"strconv"
	"strings"
)

// DynName is the runtime enum standing in for values whose type could
// not be resolved statically.
const DynName = "DynValue"

// Position selects how context-dependent types (functions, iterators)
// are spelled.
type Position uint8

const (
	PosValue Position = iota
	PosParam
	PosReturn
)

// Mapper spells semantic types as Rust types.
type Mapper struct {
	IntType string              // "i32" unless configured
	Rename  func(string) string // class name safety, may be nil
	Need    func(crate string)  // records crates the spelling pulls in, may be nil
	OnDyn   func(t *Type)       // observes every fallback to DynValue, may be nil
}

func (m *Mapper) intType() string {
	if m == nil || m.IntType == "" {
		return "i32"
	}
	return m.IntType
}

func (m *Mapper) need(crate string) {
	if m != nil && m.Need != nil {
		m.Need(crate)
	}
}

// Rust spells t in value position.
func (m *Mapper) Rust(t *Type) string { return m.Spell(t, PosValue) }

// Spell spells t for the given position.
func (m *Mapper) Spell(t *Type, pos Position) string {
	if t == nil {
		return m.dyn(Unknown)
	}
	switch t.Kind {
	case KindInt:
		return m.intType()
	case KindFloat:
		return "f64"
	case KindBool:
		return "bool"
	case KindStr:
		return "String"
	case KindBytes:
		return "Vec<u8>"
	case KindNone:
		return "()"
	case KindList:
		return "Vec<" + m.Rust(t.Elem) + ">"
	case KindSet:
		return "std::collections::HashSet<" + m.Rust(t.Elem) + ">"
	case KindDict:
		return "std::collections::HashMap<" + m.Rust(t.Key) + ", " + m.Rust(t.Value) + ">"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = m.Rust(e)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindOptional:
		return "Option<" + m.Rust(t.Elem) + ">"
	case KindArray:
		return "[" + m.Rust(t.Elem) + "; " + strconv.Itoa(t.Size) + "]"
	case KindIterator:
		item := "Iterator<Item = " + m.Rust(t.Elem) + ">"
		if pos == PosValue {
			return "Box<dyn " + item + ">"
		}
		return "impl " + item
	case KindFunc:
		params := make([]string, len(t.Elems))
		for i, p := range t.Elems {
			params[i] = m.Rust(p)
		}
		sig := "Fn(" + strings.Join(params, ", ") + ")"
		if t.Result != nil && t.Result.Kind != KindNone {
			sig += " -> " + m.Rust(t.Result)
		}
		if pos == PosValue {
			return "Box<dyn " + sig + ">"
		}
		return "impl " + sig
	case KindCustom:
		return m.rename(t.Name)
	case KindTypeVar:
		return t.Name
	case KindGeneric:
		args := make([]string, len(t.Elems))
		for i, a := range t.Elems {
			args[i] = m.Rust(a)
		}
		return m.rename(t.Name) + "<" + strings.Join(args, ", ") + ">"
	case KindExtern:
		return m.extern(t)
	}
	return m.dyn(t)
}

func (m *Mapper) dyn(t *Type) string {
	if m != nil && m.OnDyn != nil {
		m.OnDyn(t)
	}
	return DynName
}

func (m *Mapper) rename(name string) string {
	if m != nil && m.Rename != nil {
		return m.Rename(name)
	}
	return name
}

func (m *Mapper) extern(t *Type) string {
	switch t.Name {
	case ExtPattern:
		m.need("regex")
		return "regex::Regex"
	case ExtMatch:
		m.need("regex")
		return "regex::Captures<'_>"
	case ExtFile:
		return "std::fs::File"
	case ExtPath:
		return "std::path::PathBuf"
	case ExtDateTime:
		m.need("chrono")
		return "chrono::DateTime<chrono::Local>"
	case ExtDate:
		m.need("chrono")
		return "chrono::NaiveDate"
	case ExtTime:
		m.need("chrono")
		return "chrono::NaiveTime"
	case ExtTimeDelta:
		m.need("chrono")
		return "chrono::Duration"
	case ExtHasher:
		switch HashAlgo(t) {
		case "md5":
			m.need("md-5")
			return "md5::Md5"
		case "sha224":
			m.need("sha2")
			return "sha2::Sha224"
		case "sha384":
			m.need("sha2")
			return "sha2::Sha384"
		case "sha512":
			m.need("sha2")
			return "sha2::Sha512"
		default:
			m.need("sha2")
			return "sha2::Sha256"
		}
	case ExtCompleted:
		return "std::process::Output"
	case ExtPopen:
		return "std::process::Child"
	case ExtArgParser:
		m.need("clap")
		return "clap::Command"
	case ExtNamespace:
		m.need("clap")
		return "clap::ArgMatches"
	case ExtCSVReader, ExtCSVDictReader:
		m.need("csv")
		return "csv::Reader<std::fs::File>"
	case ExtCSVWriter, ExtCSVDictWriter:
		m.need("csv")
		return "csv::Writer<std::fs::File>"
	case ExtJSON:
		m.need("serde_json")
		return "serde_json::Value"
	case ExtRandom:
		m.need("rand")
		return "rand::rngs::StdRng"
	}
	return m.dyn(t)
}

// Default returns the identity element of t as a Rust expression.
func (m *Mapper) Default(t *Type) string {
	if t == nil {
		return DynName + "::None"
	}
	switch t.Kind {
	case KindInt:
		return "0"
	case KindFloat:
		return "0.0"
	case KindBool:
		return "false"
	case KindStr:
		return "String::new()"
	case KindBytes, KindList:
		return "Vec::new()"
	case KindSet:
		return "std::collections::HashSet::new()"
	case KindDict:
		return "std::collections::HashMap::new()"
	case KindNone:
		return "()"
	case KindOptional:
		return "None"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = m.Default(e)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		return "[" + m.Default(t.Elem) + "; " + strconv.Itoa(t.Size) + "]"
	case KindCustom, KindGeneric:
		return m.rename(t.Name) + "::default()"
	case KindExtern:
		if t.Name == ExtJSON {
			return "serde_json::Value::Null"
		}
		return "Default::default()"
	}
	return DynName + "::None"
}
