package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func objStm(n, first int, data string) *Stream {
	return &Stream{
		Dict: Dict{"Type": Name("ObjStm"), "N": Int(n), "First": Int(first)},
		Data: []byte(data),
	}
}

// TestNewObjectStream tests validation of the stream dictionary
func TestNewObjectStream(t *testing.T) {
	tests := []struct {
		name    string
		dict    Dict
		wantErr bool
	}{
		{"valid", Dict{"Type": Name("ObjStm"), "N": Int(3), "First": Int(20)}, false},
		{"missing Type", Dict{"N": Int(3), "First": Int(20)}, true},
		{"wrong Type", Dict{"Type": Name("XRef"), "N": Int(3), "First": Int(20)}, true},
		{"missing N", Dict{"Type": Name("ObjStm"), "First": Int(20)}, true},
		{"negative N", Dict{"Type": Name("ObjStm"), "N": Int(-1), "First": Int(20)}, true},
		{"missing First", Dict{"Type": Name("ObjStm"), "N": Int(3)}, true},
		{"real First", Dict{"Type": Name("ObjStm"), "N": Int(3), "First": Real(2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os, err := NewObjectStream(&Stream{Dict: tt.dict})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && os.N() != 3 {
				t.Errorf("N() = %d, want 3", os.N())
			}
		})
	}

	if _, err := NewObjectStream(nil); err == nil {
		t.Error("expected error for nil stream")
	}
}

// TestObjectStreamObjects tests extracting members by index
func TestObjectStreamObjects(t *testing.T) {
	// header "10 0 11 34 12 40 " is 17 bytes
	body := "<< /Type /Annot /Subtype /Text >> [1 2] (note)"
	os, err := NewObjectStream(objStm(3, 17, "10 0 11 34 12 40 "+body))
	if err != nil {
		t.Fatalf("NewObjectStream: %v", err)
	}

	nums, err := os.ObjectNumbers()
	if err != nil {
		t.Fatalf("ObjectNumbers: %v", err)
	}
	if diff := cmp.Diff([]int{10, 11, 12}, nums); diff != "" {
		t.Errorf("ObjectNumbers mismatch (-want +got):\n%s", diff)
	}

	want := []Object{
		Dict{"Type": Name("Annot"), "Subtype": Name("Text")},
		Array{Int(1), Int(2)},
		String("note"),
	}
	for i, w := range want {
		obj, num, err := os.ObjectAt(i)
		if err != nil {
			t.Fatalf("ObjectAt(%d): %v", i, err)
		}
		if num != nums[i] {
			t.Errorf("ObjectAt(%d) number = %d, want %d", i, num, nums[i])
		}
		if diff := cmp.Diff(w, obj); diff != "" {
			t.Errorf("ObjectAt(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}

	if _, _, err := os.ObjectAt(3); err == nil {
		t.Error("expected error for index out of range")
	}
}

// TestObjectStreamCompressed tests a Flate-encoded object stream
func TestObjectStreamCompressed(t *testing.T) {
	stream := objStm(1, 4, "")
	stream.Dict["Filter"] = Name("FlateDecode")
	stream.Data = zlibCompress([]byte("7 0 <</Type/Page>>"))

	os, err := NewObjectStream(stream)
	if err != nil {
		t.Fatalf("NewObjectStream: %v", err)
	}
	obj, num, err := os.ObjectAt(0)
	if err != nil {
		t.Fatalf("ObjectAt: %v", err)
	}
	if num != 7 {
		t.Errorf("number = %d, want 7", num)
	}
	if diff := cmp.Diff(Dict{"Type": Name("Page")}, obj); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// TestObjectStreamHeaderErrors tests malformed headers and data
func TestObjectStreamHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"First beyond data", objStm(1, 50, "1 0 42")},
		{"short header", objStm(2, 4, "1 0 42")},
		{"non-integer header", objStm(1, 6, "/A 0 42")},
		{"offset beyond data", objStm(1, 5, "1 90 42")},
		{"offset overflows", objStm(1, 23, "1 9223372036854775800 42")},
		{"N larger than header", objStm(1<<30, 4, "1 0 42")},
		{"undecodable", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(4), "Filter": Name("FlateDecode")}, Data: []byte("junk")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os, err := NewObjectStream(tt.stream)
			if err != nil {
				t.Fatalf("NewObjectStream: %v", err)
			}
			if _, _, err := os.ObjectAt(0); err == nil {
				t.Error("expected error")
			}
		})
	}
}
