package ocr

import "testing"

func TestSettings(t *testing.T) {
	s := newSettings(nil)
	if s.language != DefaultLanguage || s.mode != PSMSparseText {
		t.Errorf("defaults = %+v", s)
	}

	s = newSettings([]Option{WithLanguage("eng+fra"), WithPageSegMode(PSMSingleBlock), WithLanguage("")})
	if s.language != "eng+fra" || s.mode != PSMSingleBlock {
		t.Errorf("settings = %+v", s)
	}
}
