package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	genericSubject = "a general topic"
	jsonOnlyArray  = "Return ONLY the JSON array, no additional text."
	jsonOnlyObject = "Respond with ONLY the JSON, no other text."
)

// BuildPrompt returns the prompt for req.
func BuildPrompt(req Request) string {
	switch req.Kind() {
	case KindQuizBatch:
		if req.Context() != "" {
			return ContentQuizPrompt(req.Context(), req.DesiredCount(), req.ItemTypes())
		}
		return QuizPrompt(req.Subject(), req.DesiredCount(), req.ItemTypes())
	case KindRoadmap:
		return RoadmapPrompt(req.Subject())
	case KindCourseList:
		return CoursePrompt(req.Subject(), req.DesiredCount())
	case KindChatAnswer:
		return ChatPrompt(req.Subject(), req.Context())
	}
	return ""
}

func orGeneric(subject string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return genericSubject
}

func typeList(types []QuestionType) string {
	if len(types) == 0 {
		types = AllQuestionTypes
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

const quizRules = `- For MCQ: provide 4 options (A, B, C, D) with one correct answer
- For fill-in-the-blank: use _____ to indicate the blank
- For true/false: provide True or False as correct answer`

// QuizPrompt asks for count questions about topic.
func QuizPrompt(topic string, count int, types []QuestionType) string {
	topic = orGeneric(topic)
	return fmt.Sprintf(`You are a quiz generator. Create exactly %[2]d quiz questions about the topic: %[1]s

CRITICAL: Generate questions specifically about %[1]s. Do NOT generate generic questions about other topics.

REQUIREMENTS:
- Generate exactly %[2]d questions
- Use these question types: %[3]s
- EVERY question MUST be specifically about %[1]s
- Questions should test understanding of %[1]s concepts, facts, and applications
%[4]s
- Include detailed explanations that explain why the answer is correct

Format as JSON array:
[
    {
        "type": "mcq|fill_blank|true_false",
        "question": "Question text here",
        "options": ["option1", "option2", "option3", "option4"],
        "correct_answer": "A|B|C|D or text answer or True|False",
        "explanation": "Detailed explanation about %[1]s"
    }
]
Include "options" only for mcq questions.

%[5]s`, topic, count, typeList(types), quizRules, jsonOnlyArray)
}

// ContentQuizPrompt asks for count questions drawn only from content.
func ContentQuizPrompt(content string, count int, types []QuestionType) string {
	return fmt.Sprintf(`You are a quiz generator. Create exactly %[2]d quiz questions based EXCLUSIVELY on the following content.

CRITICAL: You MUST use ONLY the information provided in the content below. Do NOT use any external knowledge.

CONTENT:
%[1]s

REQUIREMENTS:
- Generate exactly %[2]d questions
- Use these question types: %[3]s
- EVERY question MUST be based ONLY on the specific content above
- Questions should test understanding of facts, names, dates, and concepts mentioned in the content
%[4]s
- Include explanations that reference specific details from the content

Format as JSON array:
[
    {
        "type": "mcq|fill_blank|true_false",
        "question": "Question text here",
        "options": ["option1", "option2", "option3", "option4"],
        "correct_answer": "A|B|C|D or text answer or True|False",
        "explanation": "Explanation referencing specific content"
    }
]
Include "options" only for mcq questions.

%[5]s`, orGeneric(content), count, typeList(types), quizRules, jsonOnlyArray)
}

// RoadmapPrompt asks for a five-level roadmap for topic.
func RoadmapPrompt(topic string) string {
	topic = orGeneric(topic)
	return fmt.Sprintf(`You are an expert learning path designer with deep knowledge of %[1]s. Create a comprehensive, highly detailed learning roadmap specifically for %[1]s.

IMPORTANT: Respond ONLY with valid JSON. Do not include any text before or after the JSON.

Create a detailed roadmap with this exact JSON structure:
{
    "title": "Comprehensive Learning Roadmap for %[1]s",
    "description": "A detailed, step-by-step guide to master %[1]s from beginner to expert level",
    "steps": [
        {
            "level": 1,
            "title": "Foundation and Basics of %[1]s",
            "description": "Build a strong foundation with fundamental concepts specific to %[1]s",
            "topics": ["Core concepts and definitions in %[1]s", "Basic terminology and vocabulary"],
            "resources": ["https://www.coursera.org/search?query=%[1]s - Coursera %[1]s Courses"]
        }
    ],
    "estimated_time": "12-24 months for complete mastery",
    "prerequisites": ["Basic computer literacy and internet skills"],
    "learning_tips": ["Practice regularly with hands-on projects"]
}

Make this roadmap highly specific to %[1]s. Provide five levels that progress from basic to expert, each with specific topics and real learning resources written as "URL - Name".

%[2]s`, topic, jsonOnlyObject)
}

// CoursePrompt asks for count online courses about topic.
func CoursePrompt(topic string, count int) string {
	topic = orGeneric(topic)
	return fmt.Sprintf(`You are an educational advisor. Recommend exactly %[2]d real online courses for learning %[1]s.

Format as JSON array:
[
    {
        "title": "Course title",
        "url": "https://...",
        "provider": "Coursera|edX|Udemy|...",
        "level": "Beginner|Intermediate|Advanced",
        "topics": ["%[1]s"]
    }
]

Only include courses whose URL you are confident exists.

%[3]s`, topic, count, jsonOnlyArray)
}

// ChatPrompt frames a learner's question, optionally with retrieved context.
// The reply is plain text, not JSON.
func ChatPrompt(question, context string) string {
	question = orGeneric(question)
	if strings.TrimSpace(context) == "" {
		return question
	}
	return fmt.Sprintf(`Answer the question using the following context from educational sources. If the context does not cover the question, answer from general knowledge and say so.

CONTEXT:
%s

QUESTION: %s`, context, question)
}

// TopicExtractionPrompt asks the model to name the topic of content.
func TopicExtractionPrompt(content string) string {
	return "Extract the main topic or subject from this content. Return only the topic name, nothing else.\n\nContent: " +
		Truncate(content, 1000) + "\n\nTopic:"
}

// Truncate cuts s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
