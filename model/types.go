// Package model talks to the remote multimodal backend and turns its
// free-form output into the structured problem and solution types the
// workflow stores.
package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"screensolver/shared"
)

// ProblemType classifies what kind of task was extracted from the captures.
type ProblemType string

const (
	ProblemCoding         ProblemType = "coding"
	ProblemMultipleChoice ProblemType = "multiple_choice"
	ProblemQAndA          ProblemType = "q_and_a"
	ProblemMath           ProblemType = "math"
	ProblemReasoning      ProblemType = "general_reasoning"
)

func (t ProblemType) Valid() bool {
	switch t {
	case ProblemCoding, ProblemMultipleChoice, ProblemQAndA, ProblemMath, ProblemReasoning:
		return true
	}
	return false
}

// Details is the type-specific payload of a problem. One variant per
// ProblemType rather than a free-form map.
type Details interface {
	problemDetails()
}

type CodingDetails struct {
	Language string `json:"language"`
}

type ChoiceQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type ChoiceDetails struct {
	Questions []ChoiceQuestion `json:"questions"`
}

type QADetails struct {
	Questions []string `json:"questions"`
}

type MathDetails struct {
	Topic string `json:"topic"`
}

type ReasoningDetails struct {
	Context string `json:"context"`
}

func (CodingDetails) problemDetails()    {}
func (ChoiceDetails) problemDetails()    {}
func (QADetails) problemDetails()        {}
func (MathDetails) problemDetails()      {}
func (ReasoningDetails) problemDetails() {}

// ProblemInfo is the classified, structured description of the user's task.
type ProblemInfo struct {
	Type      ProblemType
	Statement string
	Details   Details
}

type problemWire struct {
	Type      ProblemType     `json:"problemType"`
	Statement string          `json:"statement"`
	Details   json.RawMessage `json:"details,omitempty"`
}

func (p *ProblemInfo) UnmarshalJSON(data []byte) error {
	var wire problemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return shared.NewMalformedResponse(fmt.Sprintf("problem JSON: %v", err))
	}
	if wire.Type == "" {
		return shared.NewMalformedResponse("problem JSON missing problemType")
	}
	if !wire.Type.Valid() {
		return shared.NewMalformedResponse(fmt.Sprintf("unknown problemType %q", wire.Type))
	}
	if strings.TrimSpace(wire.Statement) == "" {
		return shared.NewMalformedResponse("problem JSON missing statement")
	}
	details, err := decodeDetails(wire.Type, wire.Details)
	if err != nil {
		return err
	}
	p.Type = wire.Type
	p.Statement = wire.Statement
	p.Details = details
	return nil
}

func (p ProblemInfo) MarshalJSON() ([]byte, error) {
	var details json.RawMessage
	if p.Details != nil {
		data, err := json.Marshal(p.Details)
		if err != nil {
			return nil, err
		}
		details = data
	}
	return json.Marshal(problemWire{Type: p.Type, Statement: p.Statement, Details: details})
}

func decodeDetails(t ProblemType, raw json.RawMessage) (Details, error) {
	decode := func(v Details) (Details, error) {
		if len(raw) == 0 || string(raw) == "null" {
			return v, nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, shared.NewMalformedResponse(fmt.Sprintf("details for %s: %v", t, err))
		}
		return v, nil
	}
	switch t {
	case ProblemCoding:
		return decode(&CodingDetails{})
	case ProblemMultipleChoice:
		return decode(&ChoiceDetails{})
	case ProblemQAndA:
		return decode(&QADetails{})
	case ProblemMath:
		return decode(&MathDetails{})
	default:
		return decode(&ReasoningDetails{})
	}
}

// Answer is the solution payload. Coding and math/reasoning produce one blob;
// multiple choice and Q&A produce per-question entries.
type Answer interface {
	answerText() string
}

type CodeAnswer struct {
	Code string
}

type TextAnswer struct {
	Text string
}

type StructuredAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type StructuredAnswers []StructuredAnswer

func (a CodeAnswer) answerText() string { return a.Code }
func (a TextAnswer) answerText() string { return a.Text }
func (a StructuredAnswers) answerText() string {
	var b strings.Builder
	for i, item := range a {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", item.Question, item.Answer)
	}
	return b.String()
}

// SolutionInfo is the model-generated answer plus metadata.
type SolutionInfo struct {
	Answer             Answer
	Reasoning          string
	TimeComplexity     string
	SpaceComplexity    string
	CodeExplanation    []string
	SuggestedNextSteps []string
	Debugged           bool
}

// AnswerText flattens the answer for prompts and plain-text display.
func (s SolutionInfo) AnswerText() string {
	if s.Answer == nil {
		return ""
	}
	return s.Answer.answerText()
}

type solutionBody struct {
	Answer             json.RawMessage `json:"answer"`
	Reasoning          string          `json:"reasoning"`
	TimeComplexity     string          `json:"time_complexity,omitempty"`
	SpaceComplexity    string          `json:"space_complexity,omitempty"`
	CodeExplanation    []string        `json:"code_explanation,omitempty"`
	SuggestedNextSteps []string        `json:"suggested_next_steps,omitempty"`
}

type solutionEnvelope struct {
	Solution *solutionBody `json:"solution"`
}

// ParseSolution decodes recovered solution JSON. The answer variant is driven
// by the problem type. Responses with or without the {"solution": ...}
// envelope are both accepted.
func ParseSolution(t ProblemType, data []byte) (SolutionInfo, error) {
	var env solutionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return SolutionInfo{}, shared.NewMalformedResponse(fmt.Sprintf("solution JSON: %v", err))
	}
	body := env.Solution
	if body == nil {
		body = &solutionBody{}
		if err := json.Unmarshal(data, body); err != nil {
			return SolutionInfo{}, shared.NewMalformedResponse(fmt.Sprintf("solution JSON: %v", err))
		}
	}
	if len(body.Answer) == 0 || string(body.Answer) == "null" {
		return SolutionInfo{}, shared.NewMalformedResponse("solution JSON missing answer")
	}
	answer, err := decodeAnswer(t, body.Answer)
	if err != nil {
		return SolutionInfo{}, err
	}
	return SolutionInfo{
		Answer:             answer,
		Reasoning:          body.Reasoning,
		TimeComplexity:     body.TimeComplexity,
		SpaceComplexity:    body.SpaceComplexity,
		CodeExplanation:    body.CodeExplanation,
		SuggestedNextSteps: body.SuggestedNextSteps,
	}, nil
}

func decodeAnswer(t ProblemType, raw json.RawMessage) (Answer, error) {
	switch t {
	case ProblemMultipleChoice, ProblemQAndA:
		var items StructuredAnswers
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, shared.NewMalformedResponse(fmt.Sprintf("answer for %s: %v", t, err))
		}
		return items, nil
	case ProblemCoding:
		var code string
		if err := json.Unmarshal(raw, &code); err != nil {
			return nil, shared.NewMalformedResponse(fmt.Sprintf("answer for %s: %v", t, err))
		}
		return CodeAnswer{Code: code}, nil
	default:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, shared.NewMalformedResponse(fmt.Sprintf("answer for %s: %v", t, err))
		}
		return TextAnswer{Text: text}, nil
	}
}

// MarshalJSON writes the same wire shape ParseSolution reads (without the
// envelope), so stored solutions round-trip through state queries.
func (s SolutionInfo) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if s.Answer != nil {
		var v any
		switch a := s.Answer.(type) {
		case CodeAnswer:
			v = a.Code
		case TextAnswer:
			v = a.Text
		case StructuredAnswers:
			v = a
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(struct {
		solutionBody
		Debugged bool `json:"debugged,omitempty"`
	}{
		solutionBody: solutionBody{
			Answer:             raw,
			Reasoning:          s.Reasoning,
			TimeComplexity:     s.TimeComplexity,
			SpaceComplexity:    s.SpaceComplexity,
			CodeExplanation:    s.CodeExplanation,
			SuggestedNextSteps: s.SuggestedNextSteps,
		},
		Debugged: s.Debugged,
	})
}
