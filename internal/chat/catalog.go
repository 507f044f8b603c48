package chat

var suggestions = []SuggestionGroup{
	{Category: "Programming", Questions: []string{
		"What is object-oriented programming?",
		"How do I learn Python?",
		"What are the differences between Python and JavaScript?",
		"How do I create a REST API?",
		"What is machine learning?",
	}},
	{Category: "Mathematics", Questions: []string{
		"What is calculus?",
		"How do I solve quadratic equations?",
		"What are matrices used for?",
		"How do I understand probability?",
		"What is linear algebra?",
	}},
	{Category: "Science", Questions: []string{
		"How does photosynthesis work?",
		"What is the theory of relativity?",
		"How do atoms work?",
		"What is DNA?",
		"How do ecosystems function?",
	}},
	{Category: "History", Questions: []string{
		"What caused World War II?",
		"How did the Industrial Revolution change society?",
		"What was the Cold War?",
		"How did ancient civilizations develop?",
		"What led to the fall of the Roman Empire?",
	}},
	{Category: "Technology", Questions: []string{
		"How do computers work?",
		"What is artificial intelligence?",
		"How does the internet work?",
		"What is blockchain technology?",
		"How do smartphones function?",
	}},
}

var topics = []Topic{
	{Name: "Programming", Icon: "💻", Subtopics: []string{"Python", "JavaScript", "Java", "C++", "Web Development", "Mobile Development"}},
	{Name: "Mathematics", Icon: "📐", Subtopics: []string{"Algebra", "Calculus", "Statistics", "Geometry", "Linear Algebra"}},
	{Name: "Science", Icon: "🔬", Subtopics: []string{"Physics", "Chemistry", "Biology", "Astronomy", "Earth Science"}},
	{Name: "History", Icon: "📚", Subtopics: []string{"Ancient History", "Modern History", "World Wars", "Civilizations", "Political History"}},
	{Name: "Technology", Icon: "🚀", Subtopics: []string{"AI", "Machine Learning", "Cybersecurity", "Cloud Computing", "IoT"}},
	{Name: "Languages", Icon: "🗣️", Subtopics: []string{"English", "Spanish", "French", "German", "Chinese", "Japanese"}},
}

var features = []string{
	"AI-powered educational responses",
	"Web content integration",
	"Source citation",
	"Multi-topic support",
	"Real-time learning assistance",
	"Streaming answers over WebSocket",
}

var capabilities = []string{
	"Answer educational questions",
	"Provide detailed explanations",
	"Cite reliable sources",
	"Support multiple subjects",
	"Adapt to different learning levels",
}
