package retriever

// Hit is one search match: a teacher profile id and its similarity score.
type Hit struct {
	ProfileID int64
	Score     float32
}
