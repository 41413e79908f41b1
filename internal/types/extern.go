package types

// Standard-library instance types, named by their Python qualified name.
const (
	ExtPattern       = "re.Pattern"
	ExtMatch         = "re.Match"
	ExtFile          = "io.TextIOWrapper"
	ExtPath          = "pathlib.Path"
	ExtDateTime      = "datetime.datetime"
	ExtDate          = "datetime.date"
	ExtTime          = "datetime.time"
	ExtTimeDelta     = "datetime.timedelta"
	ExtHasher        = "hashlib._Hash"
	ExtCompleted     = "subprocess.CompletedProcess"
	ExtPopen         = "subprocess.Popen"
	ExtArgParser     = "argparse.ArgumentParser"
	ExtNamespace     = "argparse.Namespace"
	ExtCSVReader     = "csv.reader"
	ExtCSVWriter     = "csv.writer"
	ExtCSVDictReader = "csv.DictReader"
	ExtCSVDictWriter = "csv.DictWriter"
	ExtJSON          = "json.Value"
	ExtRandom        = "random.Random"
)

// IsExtern reports whether t is the named library instance type.
func (t *Type) IsExtern(name string) bool {
	return t != nil && t.Kind == KindExtern && t.Name == name
}

// Hasher returns a hasher type tagged with its algorithm ("md5",
// "sha256", ...). The algorithm rides in Elems as a custom marker so
// equality distinguishes algorithms.
func Hasher(algo string) *Type {
	return &Type{Kind: KindExtern, Name: ExtHasher, Elems: []*Type{Custom(algo)}}
}

// HashAlgo returns the algorithm of a hasher type, or "".
func HashAlgo(t *Type) string {
	if !t.IsExtern(ExtHasher) || len(t.Elems) == 0 {
		return ""
	}
	return t.Elems[0].Name
}
