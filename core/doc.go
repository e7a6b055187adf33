// Package core provides low-level PDF parsing primitives and object types.
//
// # Object Types
//
// PDF defines eight basic object types, all implemented as types satisfying
// the Object interface: [Null], [Bool], [Int], [Real], [String], [Name],
// [Array] and [Dict]. [Stream] pairs a dictionary with raw data, and
// [IndirectRef] addresses an indirect object by number and generation.
//
// # Parsing
//
// [Lexer] tokenizes PDF syntax and [Parser] builds objects from the tokens,
// including complete "N G obj ... endobj" definitions. Stream lengths given
// as indirect references are resolved through a [ReferenceResolver]; when
// no usable length exists the data is delimited by the endstream keyword.
//
// # Cross-Reference Sections
//
// [XRefParser] locates startxref and parses every section of the trailer
// chain, newest first: classic tables and cross-reference streams alike,
// including the /XRefStm stream of hybrid files. [ScanObjects] rebuilds a
// section from object headers when the chain is unusable.
//
// # Object Streams
//
// [ObjectStream] extracts the objects packed into a /Type /ObjStm stream.
// [Stream.Decode] applies the stream's filters (FlateDecode with
// predictors, ASCIIHexDecode and ASCII85Decode).
package core
