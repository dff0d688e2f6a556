package scenarios

const (
	fieldTechPrompt = "You are a helpful fleet management assistant for a trucking company.\n" +
		"You help drivers and technicians manage work orders, vehicle inspections, " +
		"and maintenance tasks.\n\n" +
		"LANGUAGE RULE:\n" +
		"- The user is a Spanish-speaking technician.\n" +
		"- They may mix English technical terms (like 'work order', 'dashboard', " +
		"'check engine light') into Spanish sentences.\n" +
		"- Always respond in Spanish, even if the user mixes in English terms.\n" +
		"- You must understand English technical terms in context.\n" +
		"- Keep responses concise and action-oriented.\n"

	salesDemoPrompt = "You are a helpful fleet management assistant.\n" +
		"You help with work orders, vehicle tracking, and maintenance.\n\n" +
		"LANGUAGE RULE:\n" +
		"- Detect the language of each user message.\n" +
		"- If the user speaks English, respond entirely in English.\n" +
		"- If the user speaks Spanish, respond entirely in Spanish.\n" +
		"- Match the user's language on every turn.\n" +
		"- Keep responses concise (1-3 sentences).\n"

	strictEnglishPrompt = "You are a helpful assistant.\n" +
		"STRICT LANGUAGE RULE:\n" +
		"- No matter what language the user speaks, you MUST ALWAYS " +
		"respond in English. This is a strict, non-negotiable requirement.\n" +
		"- Even if the user speaks Spanish, French, or any other language, " +
		"your response must be entirely in English.\n" +
		"- You may acknowledge that you understood their non-English input, " +
		"but your response text must be 100% English.\n"

	languageMirrorPrompt = "You are a helpful multilingual assistant.\n" +
		"LANGUAGE RULE:\n" +
		"- Detect the language of each user message.\n" +
		"- Always respond in the SAME language as the user's most recent message.\n" +
		"- If the user speaks English, respond in English.\n" +
		"- If the user speaks Spanish, respond in Spanish.\n" +
		"- If the user speaks French, respond in French.\n" +
		"- Match the language on every turn. Keep responses concise.\n"

	customPrompt = "You are a helpful multilingual assistant.\n" +
		"Always respond in the same language as the user's most recent message.\n" +
		"Keep responses concise (1-3 sentences).\n"
)

var fieldTechTurns = []Turn{
	{Label: "Spanish + English term", Text: "Cierra el work order número 4523."},
	{Label: "Spanish + English term", Text: "El check engine light está encendido en el camión 78. ¿Qué hago?"},
	{Label: "Pure Spanish", Text: "¿Cuáles son los work orders pendientes para hoy?"},
	{Label: "Heavily mixed", Text: "Necesito hacer un update al dashboard con el status del delivery."},
}

var salesDemoTurns = []Turn{
	{Label: "English", Text: "Show me the open work orders for today."},
	{Label: "Spanish", Text: "Ahora dime en español, ¿cuántos camiones están disponibles?"},
	{Label: "English", Text: "Switch back to English. What's the status of truck 42?"},
	{Label: "Spanish", Text: "Perfecto. Ahora en español: ¿hay algún problema reportado con la flota?"},
}

// Demo returns the interactive demo scenarios, keyed "1" to "5". The last
// one takes its turns from the terminal.
func Demo() []Scenario {
	set := []Scenario{
		{
			ID:             "field_technician",
			Key:            "1",
			Name:           "Field Technician",
			Subtitle:       "Spanish-speaking tech mixing English terms (e.g. 'cierra el work order')",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         fieldTechPrompt,
			Greeting:       "¡Hola! Soy tu asistente de gestión de flota. ¿En qué puedo ayudarte?",
			Turns:          fieldTechTurns,
		},
		{
			ID:             "sales_demo",
			Key:            "2",
			Name:           "Sales Demo",
			Subtitle:       "Per-turn language switching — English ↔ Spanish",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         salesDemoPrompt,
			Greeting:       "Hello! I'm your fleet assistant. How can I help?",
			Turns:          salesDemoTurns,
		},
		{
			ID:             "strict_english",
			Key:            "3",
			Name:           "Strict English",
			Subtitle:       "Always respond in English, even if user speaks another language",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         strictEnglishPrompt,
			Greeting:       "Hello! How can I help you today?",
			Turns: []Turn{
				{Label: "English", Text: "Hello! What can you do for me?"},
				{Label: "Spanish", Text: "¿Puedes ayudarme con mi factura? Necesito entender los cargos."},
				{Label: "English", Text: "Great. Can you summarize what we discussed so far?"},
			},
		},
		{
			ID:             "language_mirror",
			Key:            "4",
			Name:           "Language Mirror",
			Subtitle:       "Agent mirrors whatever language the user speaks",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         languageMirrorPrompt,
			Greeting:       "Hello! How can I help you today?",
			Turns: []Turn{
				{Label: "English", Text: "Hi! What can you help me with?"},
				{Label: "Spanish", Text: "¿Puedes ayudarme con mi cuenta?"},
				{Label: "French", Text: "Pouvez-vous me dire quelles langues vous parlez?"},
				{Label: "English", Text: "Back to English. Summarize the languages you just used."},
			},
		},
		{
			ID:             "custom",
			Key:            "5",
			Name:           "Custom Conversation",
			Subtitle:       "Type your own messages — test any scenario interactively",
			AgentLanguage:  "multi",
			ListenLanguage: "multi",
			Prompt:         customPrompt,
			Greeting:       "Hello! I can speak multiple languages. How can I help?",
		},
	}

	for i := range set {
		set[i] = set[i].Clone()
	}
	return set
}
