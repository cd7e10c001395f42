package types

// SiteMetadata is the metadata extracted from the scraped target site.
type SiteMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OGImage     string `json:"og_image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Author      string `json:"author,omitempty"`
	Industry    string `json:"industry"`
	URL         string `json:"url"`
}

// Branding holds brand identity signals extracted from the scraped site.
type Branding struct {
	PrimaryColor   string   `json:"primary_color,omitempty"`
	SecondaryColor string   `json:"secondary_color,omitempty"`
	FontFamily     string   `json:"font_family,omitempty"`
	Logo           string   `json:"logo,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
}

// ScrapeResult is the output of the site scraping step.
type ScrapeResult struct {
	Markdown string       `json:"markdown"`
	HTML     string       `json:"html,omitempty"`
	Metadata SiteMetadata `json:"metadata"`
	Branding Branding     `json:"branding"`
}

// BrandImageURLs returns the scraped brand asset URLs usable as image references.
func (r *ScrapeResult) BrandImageURLs() []string {
	var urls []string
	if r.Metadata.OGImage != "" {
		urls = append(urls, r.Metadata.OGImage)
	}
	if r.Branding.Logo != "" && r.Branding.Logo != r.Metadata.OGImage {
		urls = append(urls, r.Branding.Logo)
	}
	return urls
}

// SearchResult is the output of the industry news search step.
type SearchResult struct {
	Results   string   `json:"results"`
	Citations []string `json:"citations,omitempty"`
	Query     string   `json:"query"`
}
