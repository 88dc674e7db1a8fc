package engine

// WordPair is one secret word plus the weaker hint that imposters see
// instead of it.
type WordPair struct {
	Word string `json:"word"`
	Hint string `json:"hint"`
}

// WordPairs is the fixed corpus the assigner draws from.
var WordPairs = []WordPair{
	{Word: "math club", Hint: "nailong"},
	{Word: "ihs pjs", Hint: "comfy"},
	{Word: "track and field", Hint: "spring"},
	{Word: "hello rally", Hint: "hi!"},
	{Word: "double accel", Hint: "hard"},
	{Word: "ihs quarter zip", Hint: "performative"},
	{Word: "blue crew", Hint: "friday"},
}

var pickWordPair = func() WordPair {
	return WordPairs[randIntn(len(WordPairs))]
}
