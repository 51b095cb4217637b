package summary

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and",
		"any", "are", "aren't", "as", "at", "be", "because", "been", "before", "being",
		"below", "between", "both", "but", "by", "can", "could", "did", "do", "does",
		"doing", "don't", "down", "during", "each", "else", "even", "ever", "every", "few",
		"for", "from", "further", "get", "gets", "give", "go", "going", "good", "great",
		"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him",
		"himself", "his", "how", "i", "i'm", "if", "in", "into", "is", "isn't", "it", "it's",
		"its", "itself", "just", "know", "like", "let", "let's", "make", "me", "more",
		"most", "much", "must", "my", "myself", "need", "no", "nor", "not", "now", "of",
		"off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out",
		"over", "own", "please", "really", "same", "say", "she", "should", "so", "some",
		"such", "tell", "than", "thank", "thanks", "that", "that's", "the", "their",
		"theirs", "them", "themselves", "then", "there", "these", "they", "thing", "things",
		"think", "this", "those", "through", "to", "too", "under", "until", "up", "use",
		"very", "want", "was", "way", "we", "well", "were", "what", "what's", "when",
		"where", "which", "while", "who", "whom", "why", "will", "with", "would", "yes",
		"you", "you're", "your", "yours", "yourself", "yourselves",
		"can't", "didn't", "doesn't", "i'd", "i'll", "i've", "won't", "wouldn't", "we're",
		"they're", "there's", "you'll", "you've",
		"continuing", "explore", "anything", "something", "interesting",
	} {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether a lowercase token carries no topical meaning.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
