package grading

import (
	"fmt"
	"strings"

	"github.com/gradecraft/backend/internal/models"
)

// PromptVersion is stamped on every completed grade so results can be
// compared across prompt revisions.
const PromptVersion = "v3"

var levelDescriptions = map[string]string{
	models.LevelMiddleSchool: "a middle school student",
	models.LevelHighSchool:   "a high school student",
	models.LevelUndergrad:    "an undergraduate university student",
	models.LevelPostgrad:     "a postgraduate student",
}

// BuildPrompt renders the grading prompt for an essay. The output is a pure
// function of the essay: identical input yields an identical prompt, so the
// ensemble runs differ only in model and sampling.
func BuildPrompt(essay *models.Essay) string {
	level, ok := levelDescriptions[essay.AcademicLevel]
	if !ok {
		level = "a student"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced writing instructor grading an essay written by %s.\n", level)
	b.WriteString("Grade strictly against the assignment below. Judge the work on its own merits; do not assume facts not present in the essay.\n\n")

	fmt.Fprintf(&b, "## Assignment\nTitle: %s\nInstructions: %s\n", essay.Title, essay.Instructions)
	if essay.RubricText != "" {
		fmt.Fprintf(&b, "\n## Rubric\n%s\n", essay.RubricText)
	}
	if len(essay.FocusAreas) > 0 {
		b.WriteString("\n## Focus areas\nGive extra weight to the following when grading and writing feedback:\n")
		for _, area := range essay.FocusAreas {
			fmt.Fprintf(&b, "- %s\n", area)
		}
	}

	b.WriteString(`
## Output
Respond with a single JSON object and nothing else. No markdown, no commentary. Fields:
- "percentage": overall score, number between 0 and 100
- "category_scores": object mapping category name to a 0-100 number; use the rubric's categories if a rubric is given, otherwise "structure", "argument" and "language"
- "strengths": array of strings, what the essay does well
- "improvements": array of strings, the most impactful concrete changes
- "language_tips": array of strings, grammar and style advice citing the essay's own sentences

## Essay
`)
	b.WriteString(essay.BodyText)
	b.WriteString("\n")
	return b.String()
}

// BuildSynthesisPrompt renders the prompt that blends the feedback of the
// included ensemble runs into a single report.
func BuildSynthesisPrompt(feedbacks []*models.Feedback) string {
	var b strings.Builder
	b.WriteString("Several independent reviewers graded the same essay. Merge their feedback into one coherent report: keep points most reviewers agree on, drop contradictions and duplicates, preserve concrete examples.\n")
	b.WriteString("Respond with a single JSON object with string-array fields \"strengths\", \"improvements\" and \"language_tips\", and nothing else.\n")
	for i, fb := range feedbacks {
		fmt.Fprintf(&b, "\n## Reviewer %d\n", i+1)
		writeFeedbackSection(&b, "Strengths", fb.Strengths)
		writeFeedbackSection(&b, "Improvements", fb.Improvements)
		writeFeedbackSection(&b, "Language tips", fb.LanguageTips)
	}
	return b.String()
}

func writeFeedbackSection(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
