// Package raster renders the pages of a PDF to images, one independent job
// per page on a bounded pool.
//
//	r, _ := raster.NewCommandRasterizer("")
//	result, err := raster.NewPipeline(r, raster.WithWorkers(4)).
//	    Render(ctx, "talk.pdf", pageCount, ws.Dir())
//	if err != nil {
//	    return err
//	}
//	if err := result.Err(); err != nil {
//	    // some pages failed; result.Images holds the rest
//	}
//
// Jobs finish in any order. Output paths depend only on the page index
// (see workspace.PageImage), so callers never rely on completion order.
package raster
