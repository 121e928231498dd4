// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielhkuo/opinion-sim/models"
)

// Cardinality the survey prompt asks the model for
const (
	QuestionCount       = 10
	FollowupsPerPersona = 2
	MinPersonas         = 4
	MaxPersonas         = 6
)

const SurveySystemPrompt = "You are a political polling expert that generates detailed survey analysis."

const AnswerSystemPrompt = "You are a political polling expert. Answer questions about the poll analysis in a clear and concise way. Base your answers only on the provided poll data."

const surveyFormat = `{
  "topic": "A clear, concise title for the analysis",
  "summary": "A detailed 2-3 paragraph analysis of the survey results, including key findings and trends",
  "personas": [
    {
      "demographic": "Label for this demographic group",
      "age": "Age range",
      "location": "Geographic location",
      "background": "Socioeconomic and educational background",
      "views": "Summary of their views on the topic"
    }
  ],
  "questions": [
    {
      "question": "The survey question",
      "agreement": "Average percentage of agreement across all demographics (0-100)",
      "demographic": "Summarized view across demographics",
      "responses": [
        {
          "demographic": "Which demographic group this represents",
          "agreement": "Percentage for this specific demographic (0-100)",
          "reasoning": "Brief explanation of their stance"
        }
      ]
    }
  ],
  "followupResponses": [
    {
      "demographic": "Which demographic group this represents",
      "question": "A thoughtful follow-up question based on their views",
      "response": "A detailed personal response from this demographic's perspective, including their reasoning and experiences"
    }
  ]
}`

// BuildSurveyPrompt returns the instruction asking for a JSON survey
// simulation of topic. The topic is embedded verbatim.
func BuildSurveyPrompt(topic string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following political topic and generate a detailed survey simulation: \"%s\"\n\n", topic)
	b.WriteString("Please provide a JSON response in the following format:\n")
	b.WriteString(surveyFormat)
	b.WriteString("\n\nImportant requirements:\n")
	fmt.Fprintf(&b, "1. Generate exactly %d survey questions\n", QuestionCount)
	b.WriteString("2. For each question, provide specific responses from EVERY persona\n")
	fmt.Fprintf(&b, "3. Generate exactly %d follow-up responses for EACH persona\n", FollowupsPerPersona)
	b.WriteString("4. Ensure each persona's views are well-reasoned and consistent across their responses\n")
	b.WriteString("5. Make sure follow-up questions are unique and relevant to each persona's background\n\n")
	fmt.Fprintf(&b, "Generate %d-%d diverse personas, and ensure the analysis is balanced, data-driven, and considers multiple viewpoints. ", MinPersonas, MaxPersonas)
	b.WriteString("The follow-up responses should be detailed and reflect each persona's background and perspective.")

	return b.String()
}

// BuildAnswerPrompt serializes a stored poll followed by a new question
func BuildAnswerPrompt(question string, poll models.SurveyContent) (string, error) {
	personas, err := indentJSON(poll.Personas)
	if err != nil {
		return "", fmt.Errorf("failed to encode personas: %w", err)
	}
	questions, err := indentJSON(poll.Questions)
	if err != nil {
		return "", fmt.Errorf("failed to encode questions: %w", err)
	}
	followups, err := indentJSON(poll.FollowupResponses)
	if err != nil {
		return "", fmt.Errorf("failed to encode follow-up responses: %w", err)
	}

	var b strings.Builder
	b.WriteString("Here is the poll data:\n")
	fmt.Fprintf(&b, "Topic: %s\n", poll.Topic)
	fmt.Fprintf(&b, "Summary: %s\n", poll.Summary)
	fmt.Fprintf(&b, "Personas: %s\n", personas)
	fmt.Fprintf(&b, "Questions: %s\n", questions)
	fmt.Fprintf(&b, "Follow-up Responses: %s\n\n", followups)
	fmt.Fprintf(&b, "Question: %s", question)

	return b.String(), nil
}

func indentJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
