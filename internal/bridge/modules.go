package bridge

import "maps"

// ModuleMapping maps one source module onto a Rust path.
type ModuleMapping struct {
	RustPath string            // e.g. "std::path"; "" for modules that only carry types
	Crate    string            // external crate name, "" for std
	Version  string            // crate version requirement
	Items    map[string]string // source symbol -> Rust spelling
}

// External reports whether the mapping needs a crate dependency.
func (m *ModuleMapping) External() bool { return m != nil && m.Crate != "" }

// ImportTable maps source module names to their Rust mapping.
type ImportTable map[string]*ModuleMapping

// Lookup returns the mapping for module, or nil.
func (t ImportTable) Lookup(module string) *ModuleMapping {
	if t == nil {
		return nil
	}
	return t[module]
}

// Merge returns a copy of t with overrides applied. An override replaces
// scalar fields it sets and adds or replaces individual items.
func (t ImportTable) Merge(overrides ImportTable) ImportTable {
	out := make(ImportTable, len(t)+len(overrides))
	for k, v := range t {
		cp := *v
		cp.Items = maps.Clone(v.Items)
		out[k] = &cp
	}
	for k, ov := range overrides {
		base, ok := out[k]
		if !ok {
			cp := *ov
			cp.Items = maps.Clone(ov.Items)
			if cp.Items == nil {
				cp.Items = map[string]string{}
			}
			out[k] = &cp
			continue
		}
		if ov.RustPath != "" {
			base.RustPath = ov.RustPath
		}
		if ov.Crate != "" {
			base.Crate = ov.Crate
		}
		if ov.Version != "" {
			base.Version = ov.Version
		}
		if base.Items == nil {
			base.Items = map[string]string{}
		}
		maps.Copy(base.Items, ov.Items)
	}
	return out
}

// DefaultImportTable is the built-in module mapper.
func DefaultImportTable() ImportTable {
	return ImportTable{
		"os": {RustPath: "std::env", Items: map[string]string{
			"getcwd":   "std::env::current_dir",
			"getenv":   "std::env::var",
			"environ":  "std::env::vars",
			"listdir":  "std::fs::read_dir",
			"mkdir":    "std::fs::create_dir",
			"makedirs": "std::fs::create_dir_all",
			"remove":   "std::fs::remove_file",
			"rmdir":    "std::fs::remove_dir",
			"rename":   "std::fs::rename",
			"sep":      "std::path::MAIN_SEPARATOR",
		}},
		"os.path": {RustPath: "std::path", Items: map[string]string{
			"join":     "std::path::Path::join",
			"exists":   "std::path::Path::exists",
			"basename": "std::path::Path::file_name",
			"dirname":  "std::path::Path::parent",
			"isfile":   "std::path::Path::is_file",
			"isdir":    "std::path::Path::is_dir",
			"isabs":    "std::path::Path::is_absolute",
			"abspath":  "std::fs::canonicalize",
			"splitext": "std::path::Path::extension",
			"getsize":  "std::fs::metadata",
		}},
		"sys": {RustPath: "std::env", Items: map[string]string{
			"argv":     "std::env::args",
			"exit":     "std::process::exit",
			"stdin":    "std::io::stdin",
			"stdout":   "std::io::stdout",
			"stderr":   "std::io::stderr",
			"platform": "std::env::consts::OS",
			"maxsize":  "i64::MAX",
		}},
		"io": {RustPath: "std::io", Items: map[string]string{
			"BufferedReader": "std::io::BufReader",
			"BufferedWriter": "std::io::BufWriter",
			"BytesIO":        "std::io::Cursor",
			"StringIO":       "String",
			"TextIOWrapper":  "std::fs::File",
		}},
		"json": {RustPath: "serde_json", Crate: "serde_json", Version: "1.0", Items: map[string]string{
			"loads": "serde_json::from_str",
			"dumps": "serde_json::to_string",
			"load":  "serde_json::from_reader",
			"dump":  "serde_json::to_writer",
		}},
		"re": {RustPath: "regex", Crate: "regex", Version: "1.10", Items: map[string]string{
			"compile":    "regex::Regex::new",
			"search":     "regex::Regex::find",
			"match":      "regex::Regex::find",
			"fullmatch":  "regex::Regex::is_match",
			"findall":    "regex::Regex::find_iter",
			"finditer":   "regex::Regex::find_iter",
			"sub":        "regex::Regex::replace_all",
			"split":      "regex::Regex::split",
			"escape":     "regex::escape",
			"IGNORECASE": "(?i)",
			"I":          "(?i)",
			"MULTILINE":  "(?m)",
			"M":          "(?m)",
			"DOTALL":     "(?s)",
			"S":          "(?s)",
			"VERBOSE":    "(?x)",
			"X":          "(?x)",
			"Pattern":    "regex::Regex",
			"Match":      "regex::Captures",
		}},
		"datetime": {RustPath: "chrono", Crate: "chrono", Version: "0.4", Items: map[string]string{
			"datetime":  "chrono::Local",
			"date":      "chrono::NaiveDate",
			"time":      "chrono::NaiveTime",
			"timedelta": "chrono::Duration",
		}},
		"typing": {Items: map[string]string{
			"List":     "Vec",
			"Dict":     "std::collections::HashMap",
			"Set":      "std::collections::HashSet",
			"Tuple":    "tuple",
			"Optional": "Option",
			"Union":    "DynValue",
			"Any":      "DynValue",
			"Callable": "Fn",
			"Iterator": "Iterator",
			"Iterable": "IntoIterator",
		}},
		"collections": {RustPath: "std::collections", Items: map[string]string{
			"defaultdict": "std::collections::HashMap",
			"Counter":     "std::collections::HashMap",
			"OrderedDict": "std::collections::HashMap",
			"deque":       "std::collections::VecDeque",
		}},
		"math": {RustPath: "std::f64", Items: map[string]string{
			"pi":    "std::f64::consts::PI",
			"e":     "std::f64::consts::E",
			"tau":   "std::f64::consts::TAU",
			"inf":   "f64::INFINITY",
			"nan":   "f64::NAN",
			"sqrt":  "f64::sqrt",
			"floor": "f64::floor",
			"ceil":  "f64::ceil",
			"fabs":  "f64::abs",
			"pow":   "f64::powf",
			"exp":   "f64::exp",
			"log":   "f64::ln",
			"log10": "f64::log10",
			"log2":  "f64::log2",
			"sin":   "f64::sin",
			"cos":   "f64::cos",
			"tan":   "f64::tan",
			"atan2": "f64::atan2",
			"hypot": "f64::hypot",
			"isnan": "f64::is_nan",
			"isinf": "f64::is_infinite",
			"trunc": "f64::trunc",
		}},
		"random": {RustPath: "rand", Crate: "rand", Version: "0.8", Items: map[string]string{
			"random":  "rand::random",
			"randint": "rand::Rng::gen_range",
			"uniform": "rand::Rng::gen_range",
			"choice":  "rand::seq::SliceRandom::choose",
			"shuffle": "rand::seq::SliceRandom::shuffle",
			"seed":    "rand::SeedableRng::seed_from_u64",
		}},
		"time": {RustPath: "std::time", Items: map[string]string{
			"time":         "std::time::SystemTime::now",
			"sleep":        "std::thread::sleep",
			"perf_counter": "std::time::Instant::now",
			"monotonic":    "std::time::Instant::now",
		}},
		"hashlib": {RustPath: "sha2", Crate: "sha2", Version: "0.10", Items: map[string]string{
			"sha256": "sha2::Sha256::new",
			"sha224": "sha2::Sha224::new",
			"sha384": "sha2::Sha384::new",
			"sha512": "sha2::Sha512::new",
			"md5":    "md5::Md5::new",
		}},
		"base64": {RustPath: "base64", Crate: "base64", Version: "0.21", Items: map[string]string{
			"b64encode":         "base64::engine::general_purpose::STANDARD.encode",
			"b64decode":         "base64::engine::general_purpose::STANDARD.decode",
			"urlsafe_b64encode": "base64::engine::general_purpose::URL_SAFE.encode",
			"urlsafe_b64decode": "base64::engine::general_purpose::URL_SAFE.decode",
		}},
		"subprocess": {RustPath: "std::process", Items: map[string]string{
			"run":          "std::process::Command::output",
			"Popen":        "std::process::Command::spawn",
			"check_output": "std::process::Command::output",
			"PIPE":         "std::process::Stdio::piped",
		}},
		"argparse": {RustPath: "clap", Crate: "clap", Version: "4.5", Items: map[string]string{
			"ArgumentParser": "clap::Command::new",
			"Namespace":      "clap::ArgMatches",
		}},
		"csv": {RustPath: "csv", Crate: "csv", Version: "1.3", Items: map[string]string{
			"reader":     "csv::Reader::from_reader",
			"writer":     "csv::Writer::from_writer",
			"DictReader": "csv::Reader::from_reader",
			"DictWriter": "csv::Writer::from_writer",
		}},
		"pathlib": {RustPath: "std::path", Items: map[string]string{
			"Path":     "std::path::PathBuf",
			"PurePath": "std::path::PathBuf",
		}},
		"itertools": {RustPath: "std::iter", Items: map[string]string{
			"chain":      "Iterator::chain",
			"repeat":     "std::iter::repeat",
			"count":      "std::ops::RangeFrom",
			"cycle":      "Iterator::cycle",
			"islice":     "Iterator::take",
			"accumulate": "Iterator::scan",
			"takewhile":  "Iterator::take_while",
			"dropwhile":  "Iterator::skip_while",
		}},
		"functools": {RustPath: "std::iter", Items: map[string]string{
			"reduce":    "Iterator::fold",
			"lru_cache": "",
			"cache":     "",
			"wraps":     "",
		}},
		"asyncio": {RustPath: "tokio", Crate: "tokio", Version: "1", Items: map[string]string{
			"sleep":  "tokio::time::sleep",
			"run":    "tokio::runtime::Runtime::block_on",
			"gather": "futures::join",
		}},
		"string": {Items: map[string]string{
			"ascii_letters":   "\"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ\"",
			"ascii_lowercase": "\"abcdefghijklmnopqrstuvwxyz\"",
			"ascii_uppercase": "\"ABCDEFGHIJKLMNOPQRSTUVWXYZ\"",
			"digits":          "\"0123456789\"",
			"punctuation":     "\"!\\\"#$%&'()*+,-./:;<=>?@[\\\\]^_`{|}~\"",
		}},
		"dataclasses":       {Items: map[string]string{"dataclass": "", "field": ""}},
		"abc":               {Items: map[string]string{"ABC": "", "abstractmethod": ""}},
		"typing_extensions": {Items: map[string]string{"Protocol": ""}},
		"__future__":        {Items: map[string]string{"annotations": ""}},
	}
}
