// Package filters implements the PDF stream filters needed to read
// cross-reference streams and object streams.
//
// FlateDecode (zlib) with the TIFF 2 and PNG (10-15) predictors:
//
//	decoded, err := filters.FlateDecode(data, filters.Params{
//	    "Predictor": 12,
//	    "Columns":   5,
//	})
//
// ASCIIHexDecode and ASCII85Decode ignore whitespace and honour their
// end-of-data markers.
package filters
