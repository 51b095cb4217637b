package summary

// Topic maps a set of lowercase keywords to a label.
type Topic struct {
	Label    string
	Keywords []string
}

// DefaultTopics is checked in order; the first topic with a matching keyword wins.
var DefaultTopics = []Topic{
	{
		Label: "Technology",
		Keywords: []string{
			"technology", "tech", "code", "coding", "programming", "software", "computer",
			"algorithm", "api", "database", "javascript", "python", "golang", "ai", "app",
			"web", "machine", "server", "network",
		},
	},
	{
		Label: "Science",
		Keywords: []string{
			"science", "physics", "chemistry", "biology", "research", "experiment",
			"theory", "quantum", "climate", "space", "energy", "universe",
		},
	},
	{
		Label: "Creative",
		Keywords: []string{
			"creative", "story", "writing", "art", "design", "music", "poem", "novel",
			"paint", "painting", "draw", "drawing",
		},
	},
	{
		Label: "Business",
		Keywords: []string{
			"business", "market", "marketing", "startup", "company", "sales", "revenue",
			"strategy", "finance", "investment", "customer",
		},
	},
	{
		Label: "Learning",
		Keywords: []string{
			"learn", "learning", "study", "course", "teach", "education", "school",
			"tutorial", "understand", "explain",
		},
	},
	{
		Label: "Problem Solving",
		Keywords: []string{
			"problem", "problem-solving", "issue", "bug", "error", "fix", "solve",
			"solving", "debug", "troubleshoot",
		},
	},
	{
		Label: "Planning",
		Keywords: []string{
			"plan", "planning", "schedule", "goal", "goals", "roadmap", "project",
			"timeline", "organize",
		},
	},
}
