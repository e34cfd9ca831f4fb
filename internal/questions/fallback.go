package questions

import "quizmaster-service/internal/domain"

// DefaultPack returns the embedded fallback questions for a category. Every
// category resolves to something: unknown categories get the general
// knowledge pack, so a session never strands the player in loading.
func DefaultPack(category string) []domain.Question {
	if pack, ok := fallbackPacks[category]; ok {
		return append([]domain.Question(nil), pack...)
	}
	return append([]domain.Question(nil), fallbackPacks["gk"]...)
}

var fallbackPacks = map[string][]domain.Question{
	"gk": {
		{
			ID:            "gk-1",
			Text:          "How many continents are there on Earth?",
			Options:       []string{"Five", "Six", "Seven", "Eight"},
			CorrectOption: 2,
			Explanation:   "The usual count is seven: Africa, Antarctica, Asia, Europe, North America, Oceania, and South America.",
			Hint:          "More than six.",
		},
		{
			ID:            "gk-2",
			Text:          "Which is the largest ocean?",
			Options:       []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			CorrectOption: 3,
			Explanation:   "The Pacific covers more area than all land combined.",
			Hint:          "It borders Asia and the Americas.",
		},
		{
			ID:            "gk-3",
			Text:          "What is the capital of Australia?",
			Options:       []string{"Sydney", "Canberra", "Melbourne", "Perth"},
			CorrectOption: 1,
			Explanation:   "Canberra was purpose-built as the capital in 1913.",
			Hint:          "Not the largest city.",
		},
	},
	"science": {
		{
			ID:            "sci-1",
			Text:          "What is the chemical symbol for gold?",
			Options:       []string{"Go", "Gd", "Au", "Ag"},
			CorrectOption: 2,
			Explanation:   "Au comes from the Latin aurum.",
			Hint:          "Latin origin.",
		},
		{
			ID:            "sci-2",
			Text:          "Which planet has the most moons?",
			Options:       []string{"Jupiter", "Saturn", "Uranus", "Neptune"},
			CorrectOption: 1,
			Explanation:   "Saturn passed Jupiter after a wave of small-moon discoveries.",
			Hint:          "Famous for its rings.",
		},
		{
			ID:            "sci-3",
			Text:          "What gas do plants absorb from the atmosphere?",
			Options:       []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"},
			CorrectOption: 2,
			Explanation:   "Photosynthesis converts carbon dioxide and water into glucose.",
			Hint:          "You exhale it.",
		},
	},
	"history": {
		{
			ID:            "his-1",
			Text:          "In which year did World War II end?",
			Options:       []string{"1943", "1944", "1945", "1946"},
			CorrectOption: 2,
			Explanation:   "Japan surrendered in September 1945.",
		},
		{
			ID:            "his-2",
			Text:          "Who was the first president of the United States?",
			Options:       []string{"Thomas Jefferson", "George Washington", "John Adams", "James Madison"},
			CorrectOption: 1,
		},
		{
			ID:            "his-3",
			Text:          "The Great Wall is located in which country?",
			Options:       []string{"Japan", "India", "China", "Mongolia"},
			CorrectOption: 2,
		},
	},
	"sports": {
		{
			ID:            "spo-1",
			Text:          "How many players are on a soccer team on the field?",
			Options:       []string{"Nine", "Ten", "Eleven", "Twelve"},
			CorrectOption: 2,
		},
		{
			ID:            "spo-2",
			Text:          "In which sport would you perform a slam dunk?",
			Options:       []string{"Volleyball", "Basketball", "Tennis", "Badminton"},
			CorrectOption: 1,
		},
		{
			ID:            "spo-3",
			Text:          "How often are the Summer Olympic Games held?",
			Options:       []string{"Every 2 years", "Every 3 years", "Every 4 years", "Every 5 years"},
			CorrectOption: 2,
		},
	},
}
