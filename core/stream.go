package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdf2pptx/internal/filters"
)

// ErrUnsupportedFilter is returned by Decode for filters this package does
// not implement (image codecs, LZW, Crypt, ...).
var ErrUnsupportedFilter = errors.New("unsupported stream filter")

// Decode decodes the stream data according to the Filter(s) specified in the
// stream dictionary. FlateDecode (with predictors), ASCIIHexDecode,
// ASCII85Decode and chains of them are supported.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}
	paramsObj := s.Dict.Get("DecodeParms")

	switch f := filterObj.(type) {
	case Name:
		params, _ := paramsObj.(Dict)
		return decodeWithFilter(s.Data, string(f), params)

	case Array:
		data := s.Data
		for i, filter := range f {
			name, ok := filter.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, filter)
			}

			var params Dict
			switch p := paramsObj.(type) {
			case Array:
				params, _ = p.Get(i).(Dict)
			case Dict:
				params = p
			}

			var err error
			if data, err = decodeWithFilter(data, string(name), params); err != nil {
				return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
			}
		}
		return data, nil
	}

	return nil, fmt.Errorf("invalid Filter type: %T", filterObj)
}

// decodeWithFilter applies a single decompression filter to data.
func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filterName)
}

// dictToParams converts a Dict to filters.Params, translating numeric PDF
// objects to Go primitives.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		default:
			params[k] = v
		}
	}
	return params
}
