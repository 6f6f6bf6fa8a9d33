package agent

import (
	"fmt"
	"strings"
)

// LanguageZhTW and LanguageEN select which prompt and fallback text variant
// the agent uses. zh-TW is the default, matching the deployed bot.
const (
	LanguageZhTW = "zh-TW"
	LanguageEN   = "en"
)

func graderPrompt(language, question string, docs []Document) string {
	var sb strings.Builder
	for _, d := range docs {
		sb.WriteString(d.Content)
		sb.WriteString("\n\n")
	}

	if language == LanguageZhTW {
		return fmt.Sprintf(
			"您是一位資訊分級助理。評估檢索到的文件是否與使用者問題相關。"+
				"只需回答 'yes' 或 'no'，格式為 JSON: {\"score\": \"yes\"} 或 {\"score\": \"no\"}。"+
				"\n\n問題: %s\n\n文件: %s", question, sb.String())
	}
	return fmt.Sprintf(
		"You are a document grader. Assess if retrieved documents are relevant to the user's question. "+
			"Provide a binary score 'yes' or 'no' in JSON format: {\"score\": \"yes\"} or {\"score\": \"no\"}."+
			"\n\nQuestion: %s\n\nDocuments: %s", question, sb.String())
}

func generationPrompt(language, question string, docs []Document) string {
	var sb strings.Builder
	for _, d := range docs {
		sb.WriteString(d.Content)
		sb.WriteString("\n\n")
	}

	if language == LanguageZhTW {
		return fmt.Sprintf(
			"基於以下提供的上下文來回答問題。如果不知道答案，請說不知道，不要編造。"+
				"盡量讓答案簡潔，使用繁體中文回答。最多三句話。"+
				"\n\n問題: %s\n\n上下文: %s\n\n回答:", question, sb.String())
	}
	return fmt.Sprintf(
		"Use the following retrieved context to answer the question. "+
			"If you don't know the answer, say you don't know. Use three sentences maximum."+
			"\n\nQuestion: %s\n\nContext: %s\n\nAnswer:", question, sb.String())
}

func webGenerationPrompt(language, question string, results []SearchResult) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nContent: %s\n\n", r.Title, r.URL, r.Content)
	}

	if language == LanguageZhTW {
		return fmt.Sprintf(
			"您是一位訓練助理。基於網路搜尋結果，為使用者問題提供清楚的分步回答。"+
				"請在答案中包含來源網址。使用繁體中文回答。"+
				"\n\n問題: %s\n\n網路搜尋結果: %s", question, sb.String())
	}
	return fmt.Sprintf(
		"You are a training assistant. Based on web search results, provide a clear, "+
			"step-by-step answer to the user's question. Include source URLs in your answer."+
			"\n\nQuestion: %s\n\nWeb Results: %s", question, sb.String())
}

// generationFallback is returned when answer generation itself fails. The
// terminal state must stay user-presentable, so this is never empty.
func generationFallback(language string) string {
	if language == LanguageZhTW {
		return "抱歉，我在處理您的問題時遇到了錯誤。"
	}
	return "Sorry, I encountered an error processing your question."
}

// engineFallback is the apology for the engine-level failure path.
func engineFallback(language string) string {
	if language == LanguageZhTW {
		return "處理您的問題時發生錯誤。"
	}
	return "An error occurred while processing your question."
}
