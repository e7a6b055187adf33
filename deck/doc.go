// Package deck assembles rendered pages into an ordered slide deck and
// attaches the page comments as speaker notes.
//
//	d, err := deck.NewAssembler().Assemble(pageCount, result.Images, comments)
//	if errors.Is(err, deck.ErrMissingRenderedPage) {
//	    // a page never rendered
//	}
//	err = pptx.WriteFile("talk.pptx", d.Presentation("talk"))
//
// Slides are always in page index order, whatever order the images were
// produced in. Image data is copied into the deck, so the directory the
// pages were rendered to can be removed as soon as Assemble returns.
package deck
