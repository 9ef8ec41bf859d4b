package prompt

import "fmt"

// DocumentAssistant is the system instruction for document chat. The
// retrieved context follows it on the next line.
const DocumentAssistant = "You are a business intelligence assistant. Answer based on this report context:"

// Meeting brief prompts.
const (
	BriefQuestionsSystem = "You are a business intelligence assistant helping a manager prepare for a meeting."
	BriefSummarySystem   = "You are a business intelligence assistant."
)

// BriefQuestions asks for questions to raise in a meeting about report.
func BriefQuestions(report string) string {
	return fmt.Sprintf("Based on this business report, generate 5 sharp questions a manager should ask in the meeting:\n\n%s", report)
}

// BriefSummary asks for the key takeaways of report.
func BriefSummary(report string) string {
	return fmt.Sprintf("Summarise this business report in 3 bullet points a busy manager needs to know:\n\n%s", report)
}
