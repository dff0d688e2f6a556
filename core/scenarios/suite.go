package scenarios

const mirroringPrompt = "You are a helpful multilingual assistant.\n" +
	"LANGUAGE MIRRORING RULE (STRICT):\n" +
	"- Always respond in the same language as the user's MOST RECENT message.\n" +
	"- If the user speaks English, respond in English.\n" +
	"- If the user speaks Spanish, respond in Spanish.\n" +
	"- Do NOT translate unless the user explicitly asks.\n"

const conditionalMixPrompt = "You are a helpful bilingual assistant (English and Spanish).\n" +
	"CONDITIONAL LANGUAGE MIXING RULE:\n" +
	"- By default, respond ONLY in English.\n" +
	"- If the user includes ANY Spanish in their message, you may " +
	"respond in a mix of English and Spanish to be helpful.\n" +
	"- NEVER use Spanish unless the user has explicitly spoken Spanish " +
	"to you first in that turn.\n" +
	"- Once the user switches back to English only, return to " +
	"English-only responses.\n"

const edgeCasePrompt = "You are a helpful multilingual assistant.\n" +
	"Always respond in the same language as the user's most recent message.\n" +
	"Keep responses concise (1-2 sentences).\n"

// standardTurns is the English -> Spanish -> English conversation shared by
// the core validation scenarios.
var standardTurns = []Turn{
	{Label: "English", Text: "Hello! What can you do for me today?"},
	{Label: "Spanish", Text: "¿Puedes ayudarme con mi factura? Necesito entender los cargos."},
	{Label: "English", Text: "Great, now back to English. Can you summarize what we discussed so far?"},
}

// Suite returns the systematic multilingual validation scenarios.
func Suite() []Scenario {
	set := []Scenario{
		{
			ID:   "T1_multi_language_cartesia",
			Name: "Test 1: agent.language=multi + Cartesia sonic-multilingual",
			Description: "Does the agent allow agent.language=multi with Cartesia TTS? " +
				"Or does it throw INVALID_SETTINGS?",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         mirroringPrompt,
			Turns:          standardTurns,
		},
		{
			ID:   "T2_en_language_mirror_prompt",
			Name: "Test 2: agent.language=en + language-mirroring prompt (fallback)",
			Description: "If multi is blocked, does language=en still allow Cartesia " +
				"sonic-multilingual to speak Spanish via LLM prompt control?",
			AgentLanguage: "en",
			SpeakLanguage: "en",
			Prompt:        mirroringPrompt,
			Turns:         standardTurns,
		},
		{
			ID:   "T3_strict_english_only",
			Name: "Test 3: Strict English-only — ignore Spanish input language",
			Description: "Prompt: 'No matter what, even if you get Spanish as input, " +
				"always respond in English. Strict requirement.' Does it obey?",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         strictEnglishPrompt,
			Turns:          standardTurns,
		},
		{
			ID:   "T4_conditional_mix",
			Name: "Test 4: Conditional mixed language — mix only if user initiates Spanish",
			Description: "Prompt: 'If there is Spanish in the user's utterance, you may " +
				"respond in a mix of English and Spanish, but never do this unless " +
				"they explicitly say something in Spanish first.'",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         conditionalMixPrompt,
			Turns:          standardTurns,
		},
		{
			ID:   "T5_field_tech_spanish_primary",
			Name: "Test 5: Spanish-speaking tech mixing English terms",
			Description: "Primary use case: Spanish-speaking drivers/technicians " +
				"who mix English technical terms into Spanish sentences. " +
				"Agent should understand the mixed input and respond in Spanish.",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         fieldTechPrompt,
			Greeting:       "¡Hola! Soy tu asistente de gestión de flota. ¿En qué puedo ayudarte?",
			Turns:          fieldTechTurns,
		},
		{
			ID:   "T6_sales_demo_switching",
			Name: "Test 6: Sales demo per-turn language switching",
			Description: "Secondary use case (sales demos): User speaks entirely " +
				"in English for one turn, then entirely in Spanish the next. " +
				"Agent should ideally notice the switch and match the language.",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         salesDemoPrompt,
			Greeting:       "Hello! I'm your fleet management assistant. How can I help? / ¡Hola! Soy tu asistente. ¿En qué puedo ayudar?",
			Turns:          salesDemoTurns,
		},
		{
			ID:   "T7_edge_cases",
			Name: "Test 7: Edge cases — code-switching, French, Japanese, rapid switching",
			Description: "Breaking/edge scenarios: mid-sentence code-switching, " +
				"non-Spanish foreign languages, and rapid back-and-forth.",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         edgeCasePrompt,
			Turns: []Turn{
				{Label: "Code-switch mid-sentence", Text: "I need help with my account, pero también necesito cambiar mi dirección."},
				{Label: "French", Text: "Bonjour! Pouvez-vous m'aider avec mon compte?"},
				{Label: "English immediately", Text: "OK, English now. What languages do you support?"},
				{Label: "Japanese", Text: "日本語で話してもいいですか？"},
				{Label: "English final", Text: "That was interesting. Summarize what languages you just spoke in."},
			},
		},
	}

	for i := range set {
		set[i] = set[i].Clone()
	}
	return set
}
