package ai

import "strings"

// defaultTextConfidence is the baseline confidence assigned to plain text
// completions.
const defaultTextConfidence = 0.85

var systemPrompts = map[string]string{
	"malayalam": `You are a knowledgeable agricultural advisor specifically for farmers in Kerala, India.
Respond in Malayalam language. Provide practical, locally relevant farming advice considering Kerala's climate,
soil conditions, and traditional farming practices. Include seasonal recommendations, pest management,
and sustainable farming techniques. Be concise but helpful.`,

	"english": `You are a knowledgeable agricultural advisor for farmers in Kerala, India.
Provide practical, locally relevant farming advice considering Kerala's tropical climate,
soil conditions, and agricultural practices. Include seasonal recommendations, pest management,
and sustainable farming techniques. Be concise but helpful.`,

	"hindi": `आप केरल, भारत के किसानों के लिए एक जानकार कृषि सलाहकार हैं।
हिंदी में जवाब दें। केरल की जलवायु, मिट्टी की स्थिति और पारंपरिक खेती की प्रथाओं को ध्यान में रखते हुए
व्यावहारिक, स्थानीय रूप से प्रासंगिक कृषि सलाह प्रदान करें।`,
}

var errorMessages = map[string]string{
	"malayalam": "ക്ഷമിക്കണം, ഇപ്പോൾ നിങ്ങളുടെ ചോദ്യത്തിന് ഉത്തരം നൽകാൻ കഴിയുന്നില്ല. ദയവായി പിന്നീട് വീണ്ടും ശ്രമിക്കുക.",
	"english":   "Sorry, I'm unable to answer your question right now. Please try again later.",
	"hindi":     "क्षमा करें, अभी मैं आपके प्रश्न का उत्तर देने में असमर्थ हूं। कृपया बाद में फिर से कोशिश करें।",
}

// systemPrompt returns the advisor prompt for the user's preferred language,
// falling back to English.
func systemPrompt(language string) string {
	if prompt, ok := systemPrompts[strings.ToLower(language)]; ok {
		return prompt
	}
	return systemPrompts["english"]
}

// errorMessage returns the apology for a failed generation in the user's
// preferred language.
func errorMessage(language string) string {
	if msg, ok := errorMessages[strings.ToLower(language)]; ok {
		return msg
	}
	return errorMessages["english"]
}

// trustScore maps model confidence to a user-facing trust score, capped at
// 95%.
func trustScore(confidence float64) float64 {
	score := confidence * 0.95
	if score > 0.95 {
		return 0.95
	}
	return score
}

// extractTips pulls actionable tip lines out of a response.
func extractTips(content string) []string {
	var tips []string
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, keyword := range []string{"tip:", "suggestion:", "recommend:", "try:"} {
			if strings.Contains(lower, keyword) {
				tips = append(tips, strings.TrimSpace(line))
				break
			}
		}
		if len(tips) == 3 {
			break
		}
	}
	return tips
}

// extractRecommendations pulls imperative advice lines out of a response.
func extractRecommendations(content string) []string {
	var recommendations []string
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, keyword := range []string{"should", "must", "important", "advised"} {
			if strings.Contains(lower, keyword) {
				recommendations = append(recommendations, strings.TrimSpace(line))
				break
			}
		}
		if len(recommendations) == 2 {
			break
		}
	}
	return recommendations
}
