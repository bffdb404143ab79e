package respond

// Tone is the register detected in the user's raw message.
type Tone string

// Tones, in detection priority order.
const (
	Angry    Tone = "angry"
	Urgent   Tone = "urgent"
	Confused Tone = "confused"
	Polite   Tone = "polite"
	Emphatic Tone = "emphatic"
	Neutral  Tone = "neutral"
)

// TonePhrases are the intros placed before an answer.
var TonePhrases = map[Tone][]string{
	Angry: {
		"I'm sorry for the trouble. Let me help.",
		"I understand the frustration. Here's what I have.",
		"Apologies for the hassle. This should help.",
	},
	Urgent: {
		"Right away!",
		"Here you go, quickly:",
		"No time to waste. Here it is:",
	},
	Confused: {
		"No worries, let me clear that up.",
		"Let me explain.",
		"Here's a simple answer:",
	},
	Polite: {
		"Certainly!",
		"Of course, happy to help.",
		"Sure thing!",
	},
	Emphatic: {
		"Got it!",
		"Absolutely, here you go!",
		"Understood!",
	},
	Neutral: {
		"Here's what I found.",
		"Here you go.",
		"This might help.",
	},
}

// GreetingPhrases answer a first greeting.
var GreetingPhrases = []string{
	"Hello! I'm the university help desk bot. Ask me about courses, admissions, fees or campus life.",
	"Hi there! How can I help you with the university today?",
	"Hey! Ask me anything about departments, courses or how things work on campus.",
}

// NoMatchPhrases are replies when nothing in the knowledge base fits.
var NoMatchPhrases = []string{
	"Sorry, I don't have an answer for that yet. Could you rephrase?",
	"I couldn't find anything on that. Try asking in a different way.",
	"Hmm, that's outside what I know. You could contact the student affairs office.",
	"I'm not sure about that one. Try mentioning a department, level or course code.",
}

// SmallTalkReplies are keyed by the small-talk pattern that matched.
var SmallTalkReplies = map[string][]string{
	"how_are_you": {"I'm doing great, thanks for asking! How can I help?", "All good here. What would you like to know?"},
	"whats_up":    {"Not much, just here to answer your university questions.", "Ready to help! What do you need?"},
	"who_are_you": {"I'm a help desk assistant for the university. I answer questions about courses and campus life."},
	"thanks":      {"You're welcome!", "Happy to help!", "Anytime!"},
	"love_you":    {"That's kind of you! I'm happy to help.", "Aww, thanks! Anything else I can do?"},
	"good_job":    {"Thank you! Let me know if you need anything else.", "Glad I could help!"},
}

// ReassurancePhrases answer small talk with no specific reply.
var ReassurancePhrases = []string{
	"I'm here to help whenever you need me.",
	"Feel free to ask me anything about the university.",
}
