package questions

func truth(v bool) *bool { return &v }

// ComprehensionBank returns the questions participants must answer
// correctly before the game instructions let them continue.
func ComprehensionBank() []Props {
	return []Props{
		{
			QID:       "ccg_goal",
			Text:      "What is the main goal in each round of the game?",
			Required:  true,
			Randomize: true,
			Options: []OptionProps{
				{Text: "Pick the same option as your partner", IsTrue: truth(true)},
				{Text: "Pick a different option from your partner", IsTrue: truth(false)},
				{Text: "Pick your favorite option", IsTrue: truth(false)},
			},
		},
		{
			QID:       "ccg_payoff",
			Text:      "When do you earn points in a round?",
			Required:  true,
			Randomize: true,
			Options: []OptionProps{
				{Text: "When you and your partner choose the same symbol", IsTrue: truth(true)},
				{Text: "Every round, whatever you choose", IsTrue: truth(false)},
				{Text: "Only when you choose first", IsTrue: truth(false)},
			},
		},
		{
			QID:       "ccg_partner",
			Text:      "Who is your partner in each round?",
			Required:  true,
			Randomize: true,
			Options: []OptionProps{
				{Text: "Another participant, shown by their portrait", IsTrue: truth(true)},
				{Text: "The same computer player every round", IsTrue: truth(false)},
				{Text: "Nobody; you play alone", IsTrue: truth(false)},
			},
		},
	}
}

// SurveyBank returns the ungraded questions asked after the game.
func SurveyBank() []Props {
	return []Props{
		{
			QID:      "survey_strategy",
			Text:     "How did you usually decide which symbol to pick?",
			Required: true,
			Options: []OptionProps{
				{Text: "I picked the option with more points for me"},
				{Text: "I picked the option with more points for my partner"},
				{Text: "I guessed based on my partner's portrait"},
				{Text: "I picked at random"},
			},
		},
		{
			QID:       "survey_cues",
			Text:      "Which of these did you pay attention to? Select all that apply.",
			InputType: Checkbox,
			Options: []OptionProps{
				{Text: "The payoffs"},
				{Text: "The partner's portrait"},
				{Text: "The symbols themselves"},
				{Text: "The order of the options"},
			},
		},
	}
}
