package jobs

import "fmt"

// System prompts.
const (
	RecruiterSystem = "You are an expert recruiter and career coach. Be specific, direct and actionable."
	ColdEmailSystem = "You are an expert at writing cold emails that get responses. Be punchy and specific."
)

func materials(cv, jd string) string {
	return fmt.Sprintf("CV: %s\n\nJob Description: %s", cv, jd)
}

func analysisPrompt(cv, jd string) string {
	return "Analyse this CV against this job description.\n\n" + materials(cv, jd) + `

Provide exactly:
1. MATCH SCORE (0-100) with one line explanation
2. TOP 3 STRENGTHS
3. TOP 3 GAPS
4. ONE SENTENCE SUMMARY of what the hiring manager will think`
}

func atsPrompt(cv, jd string) string {
	return "You are an ATS system. Analyse this CV against this job description.\n\n" + materials(cv, jd) + `

Provide:
1. ATS SCORE (0-100)
2. CRITICAL KEYWORDS MISSING: list every important keyword from the JD missing in the CV
3. KEYWORDS PRESENT: list matching keywords
4. FORMAT ISSUES: any CV formatting that would hurt ATS parsing
5. QUICK FIXES: 3 specific changes to improve ATS score immediately`
}

func rewritePrompt(cv, jd string) string {
	return "Rewrite this candidate's CV professional summary and 5 bullet points tailored specifically for this job.\n\n" + materials(cv, jd) + `

Provide:
1. REWRITTEN PROFESSIONAL SUMMARY (3 sentences, mirror JD language, include key metrics)
2. 5 REWRITTEN BULLET POINTS (strong action verbs, numbers, mirror JD keywords)

Be specific. Use exact language from the job description.`
}

func questionsPrompt(cv, jd string) string {
	return "Based on this job description and CV, predict the 8 most likely interview questions.\n\n" + materials(cv, jd) + `

For each question provide:
- The question
- Why they will ask it (one line)
- A strong answer framework (2-3 sentences using the candidate's actual experience)

Focus on questions that probe the gaps between the CV and JD.`
}

func coldEmailPrompt(cv, jd string) string {
	return "Write a cold email from this candidate to the hiring manager for this role.\n\n" + materials(cv, jd) + `

Rules:
- Subject line that gets opened
- 4 sentences maximum
- First sentence: specific hook about the company/role
- Second sentence: single strongest qualification with a number
- Third sentence: one concrete thing they built or achieved
- Fourth sentence: clear call to action
- No generic phrases
- Sound human not corporate`
}
