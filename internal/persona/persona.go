package persona

import "strings"

// Reply categories for the rule-based fallback ladder.
const (
	CategoryGreeting = "greeting"
	CategoryQuestion = "question"
	CategoryBrag     = "brag"
	CategoryAgent    = "agent"
)

// DefaultID is used whenever a requested persona is unknown.
const DefaultID = "xiao_xing"

// Profile is a named chat style: a generic message table plus reply
// tables keyed by category.
type Profile struct {
	ID      string
	Name    string
	Generic []string
	Replies map[string][]string
}

var profiles = map[string]Profile{
	"xiao_xing": {
		ID:   "xiao_xing",
		Name: "Xiao Xing",
		Generic: []string{
			"Lucky stars are out tonight, I can feel it",
			"Every round is a fresh start, let's go",
			"Small bets, big dreams",
			"I checked my horoscope, today is my day",
			"Slow and steady wins the pot",
			"Someone has to win, why not me?",
		},
		Replies: map[string][]string{
			CategoryGreeting: {
				"Hey hey, welcome to the table!",
				"Good to see you here, may luck find us both",
				"Hello friend, the pot is waiting",
			},
			CategoryQuestion: {
				"Great question, but the stars keep their secrets",
				"Honestly? I just follow my gut",
				"If I knew that, I'd already be rich",
			},
			CategoryBrag: {
				"Nice win! Save some luck for the rest of us",
				"Impressive, but the wheel always turns",
				"Congrats! My turn next round",
			},
			CategoryAgent: {
				"Another agent! We should form a lucky alliance",
				"Beep boop, fellow player, may the odds be kind",
				"Two agents, one pot. May the luckiest win",
			},
		},
	},
	"ho_bao": {
		ID:   "ho_bao",
		Name: "Ho Bao",
		Generic: []string{
			"Red envelopes for everyone when I win!",
			"The pot looks juicy today, time to feast",
			"Fortune favors the bold, and I am very bold",
			"I can smell the prize money from here",
			"Another round, another chance to shine",
			"Big pot energy, let's make it rain",
		},
		Replies: map[string][]string{
			CategoryGreeting: {
				"Welcome welcome, the more players the bigger the pot!",
				"Hey there, brought your lucky charm?",
				"Come in, sit down, the party is just starting",
			},
			CategoryQuestion: {
				"Ask the pot, it knows everything",
				"My strategy? Enter every round and never look back",
				"Questions are free, winning costs an entry fee",
			},
			CategoryBrag: {
				"Ha! Wait until you see MY winning streak",
				"Not bad, not bad. Now watch a professional",
				"Winners talk, the pot listens",
			},
			CategoryAgent: {
				"A worthy robot rival appears!",
				"Fellow agent, let's show the humans how it's done",
				"May your wallet be heavy and your gas fees light",
			},
		},
	},
	"lao_na": {
		ID:   "lao_na",
		Name: "Lao Na",
		Generic: []string{
			"Patience. The pot rewards those who wait",
			"I've seen a thousand rounds, this one feels different",
			"Win or lose, the game goes on",
			"A calm mind makes the best bets",
			"The young chase luck, the wise let luck come to them",
			"One coin at a time, that's how fortunes are built",
		},
		Replies: map[string][]string{
			CategoryGreeting: {
				"Welcome, young one. Play wisely",
				"Ah, a new face. Sit, watch, learn",
				"Greetings. The table teaches patience",
			},
			CategoryQuestion: {
				"The answer you seek is in the next round",
				"Some questions only the pot can answer",
				"Wisdom is knowing when not to bet",
			},
			CategoryBrag: {
				"Enjoy it while it lasts, fortune is a fickle friend",
				"Well played. Humility keeps winnings in the purse",
				"I have won bigger and lost bigger. Stay calm",
			},
			CategoryAgent: {
				"Machines playing games of chance. What a time",
				"Greetings, fellow automaton",
				"Even agents must respect the odds",
			},
		},
	},
	"duo_duo": {
		ID:   "duo_duo",
		Name: "Duo Duo",
		Generic: []string{
			"Ooh ooh is it time to play again??",
			"I love this game SO much",
			"Clicking join faster than anyone can see",
			"Winning would be nice but playing is the best part!",
			"My favorite number is whatever wins today",
			"Round and round we go, wheee",
		},
		Replies: map[string][]string{
			CategoryGreeting: {
				"HI HI HI welcome!!",
				"New friend alert! Come play with us",
				"Yay more players, this is the best",
			},
			CategoryQuestion: {
				"I dunno but let's find out together!",
				"Hmm hmm hmm... nope, no idea, let's just play",
				"That's a thinking question and I'm a playing agent",
			},
			CategoryBrag: {
				"WOW you won?? That's amazing!!",
				"So cool!! Can you teach me your trick?",
				"Winner winner! Confetti everywhere!",
			},
			CategoryAgent: {
				"Hello robot friend! High five!",
				"Agents unite! We're the fun ones here",
				"You're an agent too?? Best day ever",
			},
		},
	},
}

// Lookup returns the profile for id, falling back to the default persona
// when id is unknown.
func Lookup(id string) Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return profiles[DefaultID]
}

func Known(id string) bool {
	_, ok := profiles[id]
	return ok
}

func IDs() []string {
	out := make([]string, 0, len(profiles))
	for id := range profiles {
		out = append(out, id)
	}
	return out
}

var questionMarkers = []string{"?", "what", "how", "why", "when", "which", "really"}

var bragMarkers = []string{"win", "won", "winning", "rich", "profit", "jackpot", "prize", "streak"}

var greetingMarkers = []string{"hi", "hello", "hey", "welcome", "gm", "morning"}

// Classify buckets a target message for the reply tables. Agent senders
// take precedence, then question markers, then win/brag keywords;
// everything else greets.
func Classify(message string, fromAgent bool) string {
	if fromAgent {
		return CategoryAgent
	}
	lower := strings.ToLower(message)
	for _, marker := range questionMarkers {
		if strings.Contains(lower, marker) {
			return CategoryQuestion
		}
	}
	for _, marker := range bragMarkers {
		if strings.Contains(lower, marker) {
			return CategoryBrag
		}
	}
	for _, marker := range greetingMarkers {
		if strings.Contains(lower, marker) {
			return CategoryGreeting
		}
	}
	return CategoryGreeting
}
