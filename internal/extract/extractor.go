package extract

// Extractor defines a minimal interface for content extraction strategies.
// scrape.HTTPScraper holds one behind its Extractor field, so a future
// readability pass can replace HeuristicExtractor without touching the
// SSRF/robots/truncation logic around it.
type Extractor interface {
    // Extract converts raw HTML bytes into a simplified Document.
    // Implementations should be deterministic and avoid side effects.
    Extract(input []byte) Document
}

// HeuristicExtractor uses the existing FromHTML function that prefers
// <main>/<article> and applies light boilerplate reduction and normalization.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(input []byte) Document {
    return FromHTML(input)
}
