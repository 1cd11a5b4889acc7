package domain

// Variant selects the retrieval strategy for a request.
type Variant string

const (
	// VariantLexical ranks with BM25 over tokenized text.
	VariantLexical Variant = "A"
	// VariantVector ranks by inner product over normalized embeddings.
	VariantVector Variant = "B"
)

// DefaultVariant is used when a request omits the tag.
const DefaultVariant = VariantLexical

// ParseVariant accepts exactly "A" or "B". Matching is case-sensitive.
func ParseVariant(tag string) (Variant, error) {
	switch Variant(tag) {
	case VariantLexical, VariantVector:
		return Variant(tag), nil
	default:
		return "", &InvalidVariantError{Tag: tag}
	}
}

func (v Variant) String() string {
	return string(v)
}
