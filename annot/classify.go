package annot

import "github.com/tsawler/pdf2pptx/core"

// Kind is the classification of one dictionary object.
type Kind int

const (
	KindOther       Kind = iota // anything the extractor ignores
	KindPage                    // /Type /Page
	KindTextComment             // /Type /Annot /Subtype /Text /Name /Comment
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "Page"
	case KindTextComment:
		return "TextComment"
	}
	return "Other"
}

// Classify tags a dictionary as a page, a comment-type text annotation or
// neither. Dictionaries without a /Type name are always KindOther.
func Classify(dict core.Dict) Kind {
	typ, ok := dict.GetName("Type")
	if !ok {
		return KindOther
	}
	switch typ {
	case "Page":
		return KindPage
	case "Annot":
		subtype, _ := dict.GetName("Subtype")
		name, _ := dict.GetName("Name")
		if subtype == "Text" && name == "Comment" {
			return KindTextComment
		}
	}
	return KindOther
}
