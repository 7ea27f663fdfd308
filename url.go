package stager

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Query parameter names used by FetchURL.
const (
	// ResourceParam carries the resource identifier.
	ResourceParam = "rid"

	// NoCacheParam carries a random value that defeats browser caching
	// for non-cacheable slots.
	NoCacheParam = "nocache"
)

// FetchURL builds the client-facing URL for a staged resource: basePath
// plus the identifier parameter and any pass-through params. When
// cacheable is false a random NoCacheParam is appended so the client
// re-fetches on every render instead of reusing its cached copy.
func FetchURL(basePath, resourceID string, params url.Values, cacheable bool) string {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set(ResourceParam, resourceID)
	if !cacheable {
		q.Set(NoCacheParam, uuid.NewString())
	}
	sep := "?"
	if strings.Contains(basePath, "?") {
		sep = "&"
	}
	return basePath + sep + q.Encode()
}
