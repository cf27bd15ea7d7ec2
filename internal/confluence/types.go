package confluence

// Page is a Confluence content item fetched with body.storage and version expanded.
type Page struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	Title   string  `json:"title"`
	Body    Body    `json:"body"`
	Version Version `json:"version"`
	Links   Links   `json:"_links"`
}

// Body wraps the storage-format representation of a page.
type Body struct {
	Storage Storage `json:"storage"`
}

// Storage carries Confluence storage-format XHTML.
type Storage struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

// Version is the page version counter; it increments on every edit, which
// makes it the authority for change detection.
type Version struct {
	Number int    `json:"number"`
	When   string `json:"when,omitempty"`
}

// Links holds the subset of _links fields the exporter needs.
type Links struct {
	WebUI    string `json:"webui,omitempty"`
	Download string `json:"download,omitempty"`
}

// ChildPage is the summary form returned by the child/page listing.
type ChildPage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Attachment describes a page attachment. URL is resolved to an absolute
// download URL by the client.
type Attachment struct {
	Filename  string
	MediaType string
	URL       string
	FileSize  int64
}

// IsImage reports whether the attachment is an image by media type.
func (a Attachment) IsImage() bool {
	return len(a.MediaType) >= 5 && a.MediaType[:5] == "image"
}

// contentList is the paginated envelope returned by content listing endpoints.
type contentList struct {
	Results []contentResult `json:"results"`
	Start   int             `json:"start"`
	Limit   int             `json:"limit"`
	Size    int             `json:"size"`
}

// contentResult is a raw listing entry; only the fields the exporter reads.
type contentResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Metadata struct {
		MediaType string `json:"mediaType"`
	} `json:"metadata"`
	Extensions struct {
		MediaType string `json:"mediaType"`
		FileSize  int64  `json:"fileSize"`
	} `json:"extensions"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}
