package model

import (
	"fmt"
	"strings"
)

var extractSystemPrompt = `
You are a precise task-extraction assistant. You look at screenshots of a problem and classify it.
Respond with ONLY a JSON object, no commentary:
{
  "problemType": one of "coding", "multiple_choice", "q_and_a", "math", "general_reasoning",
  "statement": the complete problem statement transcribed from the images,
  "details": type-specific:
    coding            -> {"language": detected or requested language}
    multiple_choice   -> {"questions": [{"question": ..., "options": [...]}]}
    q_and_a           -> {"questions": [each question as a string]}
    math              -> {"topic": the mathematical area}
    general_reasoning -> {"context": any relevant background visible}
}
`

var extractUserPrompt = `Extract and classify the problem shown in these screenshots.`

var solveSystemPrompt = `
You are an expert problem solver. Respond with ONLY a JSON object of this shape, no commentary:
{
  "solution": {
    "answer": %s,
    "reasoning": short explanation of the approach,
    "time_complexity": big-O or empty,
    "space_complexity": big-O or empty,
    "code_explanation": [optional line-by-line notes],
    "suggested_next_steps": [optional follow-ups]
  }
}
`

const (
	answerShapeCode       = `the complete solution code as one string`
	answerShapeStructured = `[{"question": ..., "answer": ...} for every question]`
	answerShapeText       = `the full worked answer as one string`
)

func solvePrompt(p ProblemInfo) (system, user string) {
	shape := answerShapeText
	var hint string
	switch d := p.Details.(type) {
	case *CodingDetails:
		shape = answerShapeCode
		if d.Language != "" {
			hint = fmt.Sprintf("Write the solution in %s.", d.Language)
		}
	case *ChoiceDetails:
		shape = answerShapeStructured
		if len(d.Questions) > 0 {
			var b strings.Builder
			b.WriteString("Questions:\n")
			for _, q := range d.Questions {
				fmt.Fprintf(&b, "- %s (options: %s)\n", q.Question, strings.Join(q.Options, ", "))
			}
			hint = b.String()
		}
	case *QADetails:
		shape = answerShapeStructured
		if len(d.Questions) > 0 {
			hint = "Questions:\n- " + strings.Join(d.Questions, "\n- ")
		}
	case *MathDetails:
		if d.Topic != "" {
			hint = "Topic: " + d.Topic
		}
	case *ReasoningDetails:
		if d.Context != "" {
			hint = "Context: " + d.Context
		}
	}

	system = fmt.Sprintf(solveSystemPrompt, shape)
	user = "Solve this problem:\n" + p.Statement
	if hint != "" {
		user += "\n\n" + hint
	}
	return system, user
}

var debugAnalysisSystemPrompt = `
You are a meticulous debugger. You get a problem, a candidate answer, and screenshots of
failures (error output, failing tests, wrong results). Explain in plain text what is wrong
with the answer and why. Do NOT return JSON. Do NOT rewrite the answer yet.
`

func debugAnalysisPrompt(p ProblemInfo, currentAnswer string) string {
	return fmt.Sprintf("Problem:\n%s\n\nCurrent answer:\n%s\n\nThe screenshots show what went wrong. What is the root cause?",
		p.Statement, currentAnswer)
}

func debugFixPrompt(p ProblemInfo, currentAnswer, analysis string) (system, user string) {
	system, _ = solvePrompt(p)
	user = fmt.Sprintf("Problem:\n%s\n\nPrevious answer:\n%s\n\nRoot-cause analysis:\n%s\n\nProduce the corrected solution.",
		p.Statement, currentAnswer, analysis)
	return system, user
}
