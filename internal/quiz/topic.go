package quiz

import (
	"context"
	"strings"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/pkg/llm"
	"go.uber.org/zap"
)

// DefaultTopic names content whose subject could not be determined.
const DefaultTopic = "General Knowledge"

// maxExtractedTopic bounds an accepted model answer; longer replies are
// usually prose rather than a topic name.
const maxExtractedTopic = 50

type topicKeywords struct {
	topic    string
	keywords []string
}

// topicTable is ordered: on equal scores the earlier topic wins.
var topicTable = []topicKeywords{
	{"geography", []string{"geography", "geographic", "earth", "land", "map", "cartography", "eratosthenes", "ptolemy"}},
	{"python", []string{"python", "programming", "code", "script", "function", "variable"}},
	{"javascript", []string{"javascript", "js", "web", "browser", "dom", "react", "node"}},
	{"react", []string{"react", "jsx", "component", "hook", "state", "props"}},
	{"machine learning", []string{"machine learning", "ml", "ai", "algorithm", "model", "training", "neural"}},
	{"mathematics", []string{"math", "mathematics", "algebra", "calculus", "equation", "formula"}},
	{"history", []string{"history", "historical", "ancient", "civilization", "war", "empire"}},
	{"science", []string{"science", "scientific", "physics", "chemistry", "biology", "experiment"}},
	{"literature", []string{"literature", "book", "novel", "poetry", "author", "writing"}},
	{"technology", []string{"technology", "tech", "computer", "software", "hardware", "digital"}},
	{"database", []string{"database", "dbms", "sql", "mysql", "postgresql", "oracle", "mongodb", "table", "query", "schema", "index", "transaction", "normalization", "erd", "entity", "relationship"}},
	{"dbms", []string{"dbms", "database management system", "rdbms", "relational database", "sql server", "mysql", "postgresql", "oracle", "database design", "data modeling"}},
	{"sql", []string{"sql", "structured query language", "select", "insert", "update", "delete", "join", "where", "group by", "order by", "database query"}},
	{"data structures", []string{"data structures", "array", "linked list", "stack", "queue", "tree", "graph", "hash table", "heap", "binary tree"}},
	{"algorithms", []string{"algorithms", "sorting", "searching", "recursion", "dynamic programming", "greedy", "divide and conquer", "complexity", "big o"}},
	{"operating systems", []string{"operating system", "os", "linux", "windows", "unix", "process", "thread", "memory management", "file system", "scheduling"}},
	{"networking", []string{"networking", "network", "tcp", "ip", "http", "dns", "router", "switch", "protocol", "osi model", "lan", "wan"}},
	{"cybersecurity", []string{"cybersecurity", "security", "encryption", "authentication", "authorization", "firewall", "vulnerability", "penetration testing", "ethical hacking"}},
	{"web development", []string{"web development", "html", "css", "javascript", "php", "asp.net", "django", "flask", "frontend", "backend", "full stack"}},
	{"mobile development", []string{"mobile development", "android", "ios", "react native", "flutter", "swift", "kotlin", "mobile app", "smartphone"}},
	{"cloud computing", []string{"cloud computing", "aws", "azure", "google cloud", "saas", "paas", "iaas", "virtualization", "docker", "kubernetes"}},
}

// lowThreshold topics win with a single keyword hit.
var lowThreshold = map[string]bool{"database": true, "dbms": true, "sql": true}

// Keywords of up to three letters ("os", "ip", "ai") would match inside
// ordinary words, so they must stand alone.
const shortKeyword = 3

// TopicFromKeywords scores content against the keyword table and returns
// the title-cased winner, or "" when no topic scores high enough.
func TopicFromKeywords(content string) string {
	lower := strings.ToLower(content)
	best, bestScore := "", 0
	for _, tk := range topicTable {
		score := 0
		for _, kw := range tk.keywords {
			if keywordIn(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = tk.topic, score
		}
	}
	if best == "" {
		return ""
	}
	if bestScore >= 2 || (lowThreshold[best] && bestScore >= 1) {
		return generation.TitleCase(best)
	}
	return ""
}

func keywordIn(text, kw string) bool {
	if len(kw) <= shortKeyword {
		return generation.ContainsWord(kw)(text)
	}
	return strings.Contains(text, kw)
}

// TopicExtractor names the subject of free text.
type TopicExtractor struct {
	invoker llm.Invoker
	logger  *zap.Logger
}

// NewTopicExtractor returns an extractor. A nil invoker limits it to the
// keyword table.
func NewTopicExtractor(invoker llm.Invoker, logger *zap.Logger) *TopicExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicExtractor{invoker: invoker, logger: logger}
}

// Extract tries the keyword table, then asks the model, then settles for
// DefaultTopic. It never fails.
func (e *TopicExtractor) Extract(ctx context.Context, content string) string {
	if strings.TrimSpace(content) == "" {
		return DefaultTopic
	}
	if topic := TopicFromKeywords(content); topic != "" {
		return topic
	}
	if e.invoker == nil {
		return DefaultTopic
	}

	reply, err := e.invoker.Invoke(ctx, generation.TopicExtractionPrompt(content),
		llm.WithTemperature(0.1), llm.WithMaxTokens(20))
	if err != nil {
		e.logger.Warn("topic extraction failed", zap.Error(err))
		return DefaultTopic
	}
	topic := strings.Trim(strings.TrimSpace(reply.Text), `"'.`)
	if topic == "" || len(topic) >= maxExtractedTopic || strings.Contains(topic, "\n") {
		e.logger.Debug("discarding extracted topic", zap.String("topic", topic))
		return DefaultTopic
	}
	return topic
}
