package annot

import (
	"testing"

	"github.com/tsawler/pdf2pptx/core"
)

// TestClassify tests the page/comment/other tagging
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		dict core.Dict
		want Kind
	}{
		{"page", core.Dict{"Type": core.Name("Page")}, KindPage},
		{"comment", core.Dict{"Type": core.Name("Annot"), "Subtype": core.Name("Text"), "Name": core.Name("Comment")}, KindTextComment},
		{"note icon", core.Dict{"Type": core.Name("Annot"), "Subtype": core.Name("Text"), "Name": core.Name("Note")}, KindOther},
		{"link", core.Dict{"Type": core.Name("Annot"), "Subtype": core.Name("Link")}, KindOther},
		{"annot without name", core.Dict{"Type": core.Name("Annot"), "Subtype": core.Name("Text")}, KindOther},
		{"pages node", core.Dict{"Type": core.Name("Pages")}, KindOther},
		{"no type", core.Dict{"Subtype": core.Name("Text"), "Name": core.Name("Comment")}, KindOther},
		{"type not a name", core.Dict{"Type": core.String("Page")}, KindOther},
		{"empty", core.Dict{}, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.dict); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindPage.String() != "Page" || KindTextComment.String() != "TextComment" || KindOther.String() != "Other" {
		t.Error("unexpected Kind names")
	}
}
