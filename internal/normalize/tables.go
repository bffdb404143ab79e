package normalize

// Lexical tables, applied token-wise in the order pidgin, abbreviation, synonym.
// Keys are single lowercase tokens. No output word is a key in any table and
// every output word is a dictionary word, so a second pass leaves output alone.

// PidginMap maps Nigerian Pidgin words to English.
var PidginMap = map[string]string{
	"wetin":  "what",
	"dey":    "is",
	"una":    "you all",
	"abeg":   "please",
	"wahala": "problem",
	"sabi":   "know",
	"wan":    "want",
	"dem":    "they",
	"abi":    "right",
	"shey":   "is it",
	"wey":    "that",
	"don":    "has",
	"comot":  "leave",
	"pikin":  "child",
	"oya":    "come on",
}

// AbbreviationMap expands chat shorthand and campus acronyms.
var AbbreviationMap = map[string]string{
	"u":    "you",
	"r":    "are",
	"ur":   "your",
	"pls":  "please",
	"plz":  "please",
	"abt":  "about",
	"hw":   "how",
	"wat":  "what",
	"wht":  "what",
	"dept": "department",
	"sem":  "semester",
	"yr":   "year",
	"lvl":  "level",
	"info": "information",
	"cs":   "computer science",
	"hod":  "head of department",
	"vc":   "vice chancellor",
	"asap": "as soon as possible",
	"thx":  "thanks",
	"tnx":  "thanks",
	"msg":  "message",
	"b4":   "before",
	"2day": "today",
	"coz":  "because",
	"cos":  "because",
	"bcos": "because",
	"btw":  "by the way",
}

// SynonymMap folds common campus synonyms onto the vocabulary the knowledge
// base uses.
var SynonymMap = map[string]string{
	"hostel":    "accommodation",
	"hostels":   "accommodation",
	"lodge":     "accommodation",
	"classes":   "courses",
	"subjects":  "courses",
	"class":     "course",
	"subject":   "course",
	"timetable": "schedule",
	"teacher":   "lecturer",
	"teachers":  "lecturers",
	"exam":      "examination",
	"exams":     "examinations",
	"canteen":   "cafeteria",
	"fees":      "fee",
	"results":   "result",
}

// tables is the fixed application order.
var tables = []map[string]string{PidginMap, AbbreviationMap, SynonymMap}
