// Package stager stages dynamically produced blobs into session-scoped
// temporary storage and issues cache-coherent resource identifiers for
// fetching them back.
//
// Each logical slot (a stable content-producing site, identified by an
// opaque slot key) carries a generation counter. Staging new content for a
// slot advances the generation and yields a fresh identifier, so downstream
// HTTP caches are forced to re-fetch; re-staging with no new content reuses
// the current identifier, so those caches stay warm. Identifiers mix in a
// per-Controller nonce, so a returning client is never served another
// session's bytes.
//
// # Quick Start
//
//	c, err := stager.New()
//	if err != nil {
//	    return err
//	}
//	defer c.Teardown()
//
//	slot := stager.SlotKey("form:avatar", "#{profile.picture}")
//
//	id := c.Stage(ctx, slot, stager.BytesSource(pngBytes)) // new upload
//	src := stager.FetchURL("/content", id, nil, true)
//
//	id = c.Stage(ctx, slot, stager.Unchanged) // page refresh, same id
//
// A later, independent request resolves the identifier back to bytes:
//
//	rc, ok := c.Fetch(id)
//	if !ok {
//	    // Miss: render nothing, the client will re-stage.
//	}
//
// Backing storage defaults to one temp file per identifier under the
// platform temp directory; see the store and store/disk packages.
package stager
