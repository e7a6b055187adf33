package pptx

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// xmlEscape escapes s for element content and attribute values.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// paragraphs splits notes into lines, one <a:p> each.
func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(strings.ReplaceAll(s, "\r", "\n"), "\n")
}

var templates = template.Must(template.New("pptx").Funcs(template.FuncMap{
	"x":     xmlEscape,
	"lines": paragraphs,
	"add":   func(a, b int) int { return a + b },
}).Parse(partTemplates))

// groupShape is the mandatory first child of every shape tree.
const groupShape = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const clrMap = `<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`

const nsAttrs = `xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentationML + `"`

var partTemplates = `
{{define "contentTypes"}}<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
	`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>` +
	`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>` +
	`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>` +
	`<Override PartName="/ppt/notesMasters/notesMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"/>` +
	`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>` +
	`<Override PartName="/ppt/theme/theme2.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>` +
	`{{range .Slides}}<Override PartName="/ppt/slides/slide{{.Number}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>` +
	`{{if .Notes}}<Override PartName="/ppt/notesSlides/notesSlide{{.Number}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>{{end}}{{end}}` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>` +
	`</Types>{{end}}

{{define "rootRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relOfficeDocument + `" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="` + relCoreProps + `" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="` + relExtendedProps + `" Target="docProps/app.xml"/>` +
	`</Relationships>{{end}}

{{define "core"}}<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
	`<dc:title>{{x .Title}}</dc:title><dc:creator>{{x .Creator}}</dc:creator>` +
	`<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>` +
	`<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>` +
	`</cp:coreProperties>{{end}}

{{define "app"}}<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
	`<Application>{{x .Creator}}</Application><Slides>{{len .Slides}}</Slides><Notes>{{.NotesCount}}</Notes>` +
	`</Properties>{{end}}

{{define "presentation"}}<p:presentation ` + nsAttrs + ` saveSubsetFonts="1">` +
	`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
	`<p:notesMasterIdLst><p:notesMasterId r:id="rId2"/></p:notesMasterIdLst>` +
	`<p:sldIdLst>{{range .Slides}}<p:sldId id="{{add .Number 255}}" r:id="rId{{add .Number 3}}"/>{{end}}</p:sldIdLst>` +
	`<p:sldSz cx="{{.Width}}" cy="{{.Height}}"/><p:notesSz cx="{{.NotesWidth}}" cy="{{.NotesHeight}}"/>` +
	`</p:presentation>{{end}}

{{define "presentationRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relSlideMaster + `" Target="slideMasters/slideMaster1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relNotesMaster + `" Target="notesMasters/notesMaster1.xml"/>` +
	`<Relationship Id="rId3" Type="` + relTheme + `" Target="theme/theme1.xml"/>` +
	`{{range .Slides}}<Relationship Id="rId{{add .Number 3}}" Type="` + relSlide + `" Target="slides/slide{{.Number}}.xml"/>{{end}}` +
	`</Relationships>{{end}}

{{define "slideMaster"}}<p:sldMaster ` + nsAttrs + `>` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupShape + `</p:spTree></p:cSld>` +
	clrMap +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>` +
	`</p:sldMaster>{{end}}

{{define "slideMasterRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relTheme + `" Target="../theme/theme1.xml"/>` +
	`</Relationships>{{end}}

{{define "slideLayout"}}<p:sldLayout ` + nsAttrs + ` type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree>` + groupShape + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>{{end}}

{{define "slideLayoutRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relSlideMaster + `" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>{{end}}

{{define "notesMaster"}}<p:notesMaster ` + nsAttrs + `>` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupShape +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg" idx="2"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="1143000" y="685800"/><a:ext cx="4572000" cy="3429000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:sp>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" sz="quarter" idx="3"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="685800" y="4343400"/><a:ext cx="5486400" cy="4114800"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` +
	`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp>` +
	`</p:spTree></p:cSld>` + clrMap +
	`</p:notesMaster>{{end}}

{{define "notesMasterRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relTheme + `" Target="../theme/theme2.xml"/>` +
	`</Relationships>{{end}}

{{define "slide"}}<p:sld ` + nsAttrs + `>` +
	`<p:cSld><p:spTree>` + groupShape +
	`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Picture 1"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>` +
	`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>` +
	`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="{{.Width}}" cy="{{.Height}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>` +
	`</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sld>{{end}}

{{define "slideRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relImage + `" Target="../media/image{{.Number}}.{{.Ext}}"/>` +
	`{{if .Notes}}<Relationship Id="rId3" Type="` + relNotesSlide + `" Target="../notesSlides/notesSlide{{.Number}}.xml"/>{{end}}` +
	`</Relationships>{{end}}

{{define "notesSlide"}}<p:notes ` + nsAttrs + `>` +
	`<p:cSld><p:spTree>` + groupShape +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>` +
	`<p:txBody><a:bodyPr/><a:lstStyle/>` +
	`{{range lines .Notes}}{{if .}}<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>{{x .}}</a:t></a:r></a:p>{{else}}<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>{{end}}{{end}}` +
	`</p:txBody></p:sp>` +
	`</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:notes>{{end}}

{{define "notesSlideRels"}}<Relationships xmlns="` + nsPackageRels + `">` +
	`<Relationship Id="rId1" Type="` + relNotesMaster + `" Target="../notesMasters/notesMaster1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relSlide + `" Target="../slides/slide{{.Number}}.xml"/>` +
	`</Relationships>{{end}}

{{define "theme"}}<a:theme xmlns:a="` + nsDrawingML + `" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="1F497D"/></a:dk2><a:lt2><a:srgbClr val="EEECE1"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4F81BD"/></a:accent1><a:accent2><a:srgbClr val="C0504D"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="9BBB59"/></a:accent3><a:accent4><a:srgbClr val="8064A2"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="4BACC6"/></a:accent5><a:accent6><a:srgbClr val="F79646"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0000FF"/></a:hlink><a:folHlink><a:srgbClr val="800080"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>{{range 3}}<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>{{end}}</a:fillStyleLst>` +
	`<a:lnStyleLst>{{range 3}}<a:ln w="9525"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>{{end}}</a:lnStyleLst>` +
	`<a:effectStyleLst>{{range 3}}<a:effectStyle><a:effectLst/></a:effectStyle>{{end}}</a:effectStyleLst>` +
	`<a:bgFillStyleLst>{{range 3}}<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>{{end}}</a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements><a:objectDefaults/><a:extraClrSchemeLst/></a:theme>{{end}}
`
