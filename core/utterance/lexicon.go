package utterance

import "github.com/koscakluka/ema-guide/core/language"

var fillers = map[language.Language][]string{
	language.English: {
		"um", "uh", "er", "ah", "like", "you know", "i mean", "well", "so",
		"actually", "basically", "hmm", "ahem",
	},
	language.Swahili: {"eeh", "eh", "ehh", "mmh", "yaani"},
}

var yesPatterns = map[language.Language][]string{
	language.English: {
		"yes", "yeah", "yep", "yup", "sure", "correct", "right", "okay", "ok", "k",
		"affirmative", "definitely", "absolutely", "of course", "certainly", "indeed",
		"i do", "i am", "i have", "i wear", "i use", "i'm wearing", "i'm using",
		"i got", "i got them", "i have them", "wearing them", "using them",
		"sometimes", "occasionally", "often", "usually", "always", "most of the time",
		"yeah sure", "yes i do", "yes i am", "yes i have", "yes i wear",
	},
	language.Swahili: {
		"ndiyo", "ndio", "sawa", "haya", "kweli", "hakika", "bila shaka",
		"nina", "nimekuwa", "nimewahi", "navaa", "natumia", "ninao",
		"mara kwa mara", "wakati mwingine", "kila mara", "mara nyingi",
		"ndiyo nina", "ndiyo navaa", "ndiyo natumia", "sawa kabisa",
	},
}

var noPatterns = map[language.Language][]string{
	language.English: {
		"no", "nope", "nah", "negative", "not", "don't", "doesn't", "didn't",
		"never", "none", "nothing", "no one", "nobody", "i don't", "i didn't",
		"i do not", "i am not", "i have not", "i haven't", "haven't", "i'm not",
		"i never", "i have never", "i've never",
		"rarely", "seldom", "hardly ever", "no i don't", "no i am not",
	},
	language.Swahili: {
		"hapana", "la", "siyo", "sio", "hamna", "hakuna", "sijawahi",
		"sina", "sikuwa", "sivai", "situmii", "sinao", "kamwe",
		"hakuna chochote", "sijawahi kuwa", "hapana sina", "hapana sivai",
		"hapana situmii", "siyo kabisa",
	},
}

// negators directly after a yes phrase negate it, as in "i use hardly ever".
var negators = []string{"not", "never", "don't", "didn't", "haven't", "hardly", "rarely", "seldom"}

var detailKeywords = []string{
	"glasses", "contacts", "lenses", "spectacles", "eyewear",
	"surgery", "lasik", "cataract", "glaucoma", "diabetic", "retinopathy",
	"macular", "degeneration", "condition", "diagnosed", "diagnosis",
	"problem", "issue", "pain", "discomfort", "blurry", "blur", "vision",
	"light", "bright", "dark", "room", "lighting", "well lit",
	"left", "both", "depends",
	"miwani", "lenzi", "macho", "jicho", "machozi", "kuona",
	"upasuaji", "daktari", "hospitali", "dawa", "tiba", "afya",
	"mgonjwa", "hali", "tatizo", "maumivu", "uchungu", "fifia",
	"mwanga", "nyepesi", "giza", "chumba", "angaza", "wazi",
	"kushoto", "kulia", "zote mbili", "wakati", "ikiwa",
}

// stray words carry no answer on their own.
var strayWords = []string{
	"the", "a", "an", "and", "or", "but", "if", "then", "that", "this", "these", "those",
	"what", "where", "when", "why", "how",
	"ya", "na", "au", "lakini", "kama", "hiyo", "hii", "hizi", "nini", "wapi", "lini",
	"kwa nini", "jinsi",
}

var moodKeywords = map[Mood][]string{
	MoodNervous:  {"nervous", "worried", "scared", "anxious", "fear", "afraid", "hofu", "wasiwasi", "ogopa", "naogopa"},
	MoodConfused: {"confused", "don't understand", "don't know", "sielewi", "taabu"},
	MoodGrateful: {"thank", "thanks", "thank you", "asante", "shukrani"},
	MoodPositive: {"happy", "excited", "great", "good", "furaha", "furahi", "nzuri"},
}

// moodOrder is the precedence when several moods match.
var moodOrder = []Mood{MoodNervous, MoodPositive, MoodConfused, MoodGrateful}
