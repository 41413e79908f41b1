// Package pyast models the parsed Python syntax tree the translator consumes.
//
// Node shapes follow CPython's ast module field for field, so a tree dumped
// by `ast` (see dump_ast.py) decodes without a translation table. Positions
// keep Python's conventions: 1-based lines, 0-based UTF-8 byte columns.
//
// Trees arrive as JSON (the dumper's output) or as the same document encoded
// with msgpack; both go through Decode. The translator never parses Python
// source itself.
package pyast
