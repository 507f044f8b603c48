package quiz

import (
	"strings"

	"github.com/HerbHall/studyforge/internal/generation"
)

type q = generation.QuizQuestion

const (
	mcq = generation.QuestionMCQ
	fib = generation.QuestionFillBlank
	tf  = generation.QuestionTrueFalse
)

// staticSets are hand-written question banks for the most requested topics.
var staticSets = map[string][]q{
	"react": {
		{Type: mcq, Question: "What is React primarily used for?", Options: []string{"Backend development", "Building user interfaces", "Database management", "Server configuration"}, CorrectAnswer: "B", Explanation: "React is a JavaScript library for building user interfaces, particularly single-page applications."},
		{Type: mcq, Question: "Which hook is used to manage state in functional components?", Options: []string{"useState", "useEffect", "useContext", "useReducer"}, CorrectAnswer: "A", Explanation: "useState is the primary hook for managing state in functional components."},
		{Type: fib, Question: "React components must start with a _____ letter.", CorrectAnswer: "capital", Explanation: "React components must start with a capital letter to distinguish them from regular HTML elements."},
		{Type: tf, Question: "React is a framework, not a library.", CorrectAnswer: "False", Explanation: "React is a library, not a framework. It focuses on the view layer and can be used with other libraries."},
	},
	"python": {
		{Type: mcq, Question: "What is the correct way to create a function in Python?", Options: []string{"function myFunc():", "def myFunc():", "create myFunc():", "func myFunc():"}, CorrectAnswer: "B", Explanation: "In Python, functions are defined using the def keyword."},
		{Type: mcq, Question: "Which data structure is mutable in Python?", Options: []string{"tuple", "list", "string", "frozenset"}, CorrectAnswer: "B", Explanation: "Lists are mutable in Python, meaning they can be modified after creation."},
		{Type: fib, Question: "Python uses _____ for indentation.", CorrectAnswer: "spaces", Explanation: "Python uses spaces (typically 4) for indentation to define code blocks."},
		{Type: tf, Question: "Python is a compiled language.", CorrectAnswer: "False", Explanation: "Python is an interpreted language, not compiled."},
	},
	"javascript": {
		{Type: mcq, Question: "What is the correct way to declare a variable in JavaScript?", Options: []string{"var x = 5;", "let x = 5;", "const x = 5;", "All of the above"}, CorrectAnswer: "D", Explanation: "All three are valid ways to declare variables in JavaScript, each with different scoping rules."},
		{Type: mcq, Question: "Which method is used to add elements to the end of an array?", Options: []string{"push()", "pop()", "shift()", "unshift()"}, CorrectAnswer: "A", Explanation: "push() adds elements to the end of an array."},
		{Type: fib, Question: "JavaScript is a _____-typed language.", CorrectAnswer: "dynamically", Explanation: "JavaScript is dynamically typed, meaning variable types are determined at runtime."},
		{Type: tf, Question: "JavaScript and Java are the same language.", CorrectAnswer: "False", Explanation: "JavaScript and Java are completely different languages with different syntax and use cases."},
	},
	"dbms": {
		{Type: mcq, Question: "What does DBMS stand for?", Options: []string{"Database Management System", "Data Base Management System", "Database Model System", "Data Business Management System"}, CorrectAnswer: "A", Explanation: "DBMS stands for Database Management System, which is software for managing databases."},
		{Type: mcq, Question: "Which SQL command is used to retrieve data from a database?", Options: []string{"SELECT", "GET", "RETRIEVE", "FETCH"}, CorrectAnswer: "A", Explanation: "The SELECT command is used to retrieve data from database tables."},
		{Type: fib, Question: "A _____ is a collection of related data organized in tables.", CorrectAnswer: "database", Explanation: "A database is a structured collection of data organized in tables with relationships."},
		{Type: tf, Question: "SQL is a programming language.", CorrectAnswer: "False", Explanation: "SQL is a query language, not a programming language. It is used for managing and manipulating databases."},
	},
	"database": {
		{Type: mcq, Question: "What is the primary purpose of a database?", Options: []string{"To store and organize data", "To create websites", "To run applications", "To connect to the internet"}, CorrectAnswer: "A", Explanation: "The primary purpose of a database is to store, organize, and manage data efficiently."},
		{Type: mcq, Question: "Which database model organizes data in tables with relationships?", Options: []string{"Relational", "Hierarchical", "Network", "Object-oriented"}, CorrectAnswer: "A", Explanation: "The relational database model organizes data in tables with relationships between them."},
		{Type: fib, Question: "A _____ is a structured way to store and retrieve data.", CorrectAnswer: "database", Explanation: "A database provides a structured way to store, organize, and retrieve data efficiently."},
		{Type: tf, Question: "All databases use SQL.", CorrectAnswer: "False", Explanation: "Not all databases use SQL. NoSQL databases like MongoDB use different query languages."},
	},
}

// Templated sets substitute {topic} with the subject as the user typed it.
var (
	programmingTemplate = []q{
		{Type: mcq, Question: "What is the primary purpose of {topic} in software development?", Options: []string{"To make code more complex", "To solve specific problems efficiently", "To slow down development", "To create bugs"}, CorrectAnswer: "B", Explanation: "{topic} is designed to solve specific problems efficiently in software development."},
		{Type: fib, Question: "{topic} is commonly used for _____ in modern development.", CorrectAnswer: "problem solving", Explanation: "{topic} is a tool or concept used for solving problems in modern software development."},
		{Type: tf, Question: "{topic} is essential for building scalable applications.", CorrectAnswer: "True", Explanation: "{topic} provides important capabilities for building scalable and maintainable applications."},
	}
	webTemplate = []q{
		{Type: mcq, Question: "How does {topic} contribute to web development?", Options: []string{"By making websites slower", "By improving user experience", "By increasing server costs", "By reducing functionality"}, CorrectAnswer: "B", Explanation: "{topic} helps improve user experience and functionality in web development."},
		{Type: fib, Question: "{topic} is important for creating _____ web applications.", CorrectAnswer: "responsive", Explanation: "{topic} helps create responsive and user-friendly web applications."},
		{Type: tf, Question: "{topic} is only used for frontend development.", CorrectAnswer: "False", Explanation: "{topic} can be used in both frontend and backend development depending on the implementation."},
	}
	generalKnowledgeTemplate = []q{
		{Type: mcq, Question: "What is {topic} primarily known for?", Options: []string{"Being completely unknown", "Having no practical applications", "Being widely used and important", "Being outdated"}, CorrectAnswer: "C", Explanation: "{topic} is likely an important and widely used concept or technology."},
		{Type: fib, Question: "{topic} is commonly used in _____ industries.", CorrectAnswer: "various", Explanation: "{topic} has applications across various industries and domains."},
		{Type: tf, Question: "{topic} is a fundamental concept in its field.", CorrectAnswer: "True", Explanation: "{topic} represents a fundamental concept or technology in its respective field."},
	}
	subjectTemplate = []q{
		{Type: mcq, Question: "Which of the following best describes {topic}?", Options: []string{"A completely useless concept", "An important technology or concept", "Something that nobody uses", "An outdated technology"}, CorrectAnswer: "B", Explanation: "{topic} is an important technology or concept in its field."},
		{Type: fib, Question: "{topic} is used for _____ purposes.", CorrectAnswer: "specific", Explanation: "{topic} serves specific purposes in its application domain."},
		{Type: tf, Question: "{topic} has practical applications in modern technology.", CorrectAnswer: "True", Explanation: "{topic} has practical applications and is relevant in modern technology."},
	}
)

// FallbackTable routes a subject to a question bank: exact static keys
// first, then category keywords, then the general knowledge template.
func FallbackTable() *generation.FallbackTable {
	var rules []generation.FallbackRule
	for _, key := range []string{"react", "python", "javascript", "dbms", "database"} {
		rules = append(rules, generation.FallbackRule{Name: key, Match: generation.Exact(key), Build: static(key)})
	}
	rules = append(rules,
		generation.FallbackRule{Name: "dbms", Match: generation.ContainsAny("database", "dbms", "sql", "mysql", "oracle", "postgres"), Build: static("dbms")},
		generation.FallbackRule{Name: "general_programming", Match: generation.ContainsAny("programming", "coding", "development", "software"), Build: templated(programmingTemplate)},
		generation.FallbackRule{Name: "web_development", Match: generation.ContainsAny("web", "internet", "browser"), Build: templated(webTemplate)},
		generation.FallbackRule{Name: "mobile_development", Match: generation.ContainsAny("mobile", "app", "ios", "android"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "game_development", Match: generation.ContainsAny("game", "gaming", "unity", "unreal"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "mathematics", Match: generation.ContainsAny("math", "mathematics", "algebra", "calculus"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "science", Match: generation.ContainsAny("science", "physics", "chemistry", "biology"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "history", Match: generation.ContainsAny("history", "historical", "ancient"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "geography", Match: generation.ContainsAny("geography", "country", "world"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "literature", Match: generation.ContainsAny("literature", "book", "novel", "poetry"), Build: templated(subjectTemplate)},
		generation.FallbackRule{Name: "general_knowledge", Build: templated(generalKnowledgeTemplate)},
	)
	return generation.NewFallbackTable(generation.KindQuizBatch, rules...)
}

func static(key string) func(generation.FallbackInput) []generation.StructuredItem {
	return func(in generation.FallbackInput) []generation.StructuredItem {
		return pick(staticSets[key], in, func(x q) q { return x })
	}
}

func templated(set []q) func(generation.FallbackInput) []generation.StructuredItem {
	return func(in generation.FallbackInput) []generation.StructuredItem {
		topic := strings.TrimSpace(in.Subject)
		if topic == "" {
			topic = "this topic"
		}
		sub := strings.NewReplacer("{topic}", topic)
		return pick(set, in, func(x q) q {
			x.Question = sub.Replace(x.Question)
			x.Explanation = sub.Replace(x.Explanation)
			return x
		})
	}
}

// pick keeps the questions of the requested types (all of them when none
// match) and samples up to in.Count of those.
func pick(set []q, in generation.FallbackInput, render func(q) q) []generation.StructuredItem {
	allowed := make(map[generation.QuestionType]bool, len(in.Types))
	for _, t := range in.Types {
		allowed[t] = true
	}
	var pool []q
	for _, x := range set {
		if len(allowed) == 0 || allowed[x.Type] {
			pool = append(pool, x)
		}
	}
	if len(pool) == 0 {
		pool = set
	}

	out := make([]generation.StructuredItem, 0, min(in.Count, len(pool)))
	for _, x := range generation.Sample(in.Rand, pool, in.Count) {
		x = render(x)
		x.Options = append([]string(nil), x.Options...)
		out = append(out, &x)
	}
	return out
}
