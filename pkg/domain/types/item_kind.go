package types

// ItemKind discriminates the entries of a merged conversation
type ItemKind string

const (
	ItemKindNote   ItemKind = "note"
	ItemKindReview ItemKind = "review"
)

func (k ItemKind) String() string {
	return string(k)
}
