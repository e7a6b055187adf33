// Package pptx writes and reads image-backed PresentationML decks: one
// full-bleed picture per slide and optional speaker notes.
package pptx

import "encoding/xml"

// XML namespaces and relationship types used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"

	relOfficeDocument = nsRelationships + "/officeDocument"
	relSlide          = nsRelationships + "/slide"
	relSlideLayout    = nsRelationships + "/slideLayout"
	relSlideMaster    = nsRelationships + "/slideMaster"
	relNotesMaster    = nsRelationships + "/notesMaster"
	relNotesSlide     = nsRelationships + "/notesSlide"
	relTheme          = nsRelationships + "/theme"
	relImage          = nsRelationships + "/image"
	relCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relExtendedProps  = nsRelationships + "/extended-properties"
)

// Slide size of the default 4:3 layout (10in x 7.5in) and its notes page,
// in EMUs.
const (
	DefaultWidth  = 9144000
	DefaultHeight = 6858000

	notesWidth  = 6858000
	notesHeight = 9144000
)

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	ID  string `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

// slideXML represents a ppt/slides/slide*.xml or notesSlide*.xml file. Only
// the parts an image deck uses are decoded.
type slideXML struct {
	CSld cSldXML `xml:"cSld"`
}

type cSldXML struct {
	SpTree spTreeXML `xml:"spTree"`
}

type spTreeXML struct {
	Sp  []spXML  `xml:"sp"`
	Pic []picXML `xml:"pic"`
}

type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	NvPr nvPrXML `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"`
}

type phXML struct {
	Type string `xml:"type,attr"`
	Idx  int    `xml:"idx,attr"`
}

type txBodyXML struct {
	P []pXML `xml:"p"`
}

type pXML struct {
	R   []rXML   `xml:"r"`
	Fld []fldXML `xml:"fld"`
}

type rXML struct {
	T string `xml:"t"`
}

type fldXML struct {
	T string `xml:"t"`
}

type picXML struct {
	BlipFill blipFillXML `xml:"blipFill"`
}

type blipFillXML struct {
	Blip blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
	Creator string   `xml:"creator"`
}

// appPropertiesXML represents docProps/app.xml.
type appPropertiesXML struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
	Slides      int      `xml:"Slides"`
	Notes       int      `xml:"Notes"`
}
