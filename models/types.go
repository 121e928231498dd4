package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Analysis step types, in emission order
const (
	StepPlanning  = "planning"
	StepQuestions = "questions"
	StepPersonas  = "personas"
	StepComplete  = "complete"
)

// Live channel message types
const (
	MessageConnected    = "connected"
	MessageSubscribe    = "subscribe"
	MessageAnalysisStep = "analysisStep"
)

// Request types

type CreatePollRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,uuid"`
}

type AskQuestionRequest struct {
	Question string `json:"question" validate:"required"`
}

// Response types

type AskQuestionResponse struct {
	Answer string `json:"answer"`
}

// Domain types

// Percentage is an agreement score between 0 and 100. It accepts JSON
// numbers as well as numeric strings such as "45" or "45%". Fields hold
// a *Percentage so that an absent or null score is told apart from 0.
type Percentage float64

// Pct returns a pointer to v as a Percentage
func Pct(v float64) *Percentage {
	p := Percentage(v)
	return &p
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid percentage %q", s)
		}
		*p = Percentage(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid percentage %s", data)
	}
	*p = Percentage(v)
	return nil
}

type Persona struct {
	Demographic string `json:"demographic" validate:"required"`
	Age         string `json:"age"`
	Location    string `json:"location"`
	Background  string `json:"background"`
	Views       string `json:"views"`
}

type DemographicResponse struct {
	Demographic string     `json:"demographic" validate:"required"`
	Agreement   *Percentage `json:"agreement" validate:"required,gte=0,lte=100"`
	Reasoning   string     `json:"reasoning"`
}

type SurveyQuestion struct {
	Question    string                `json:"question" validate:"required"`
	Agreement   *Percentage           `json:"agreement" validate:"required,gte=0,lte=100"`
	Demographic string                `json:"demographic"`
	Responses   []DemographicResponse `json:"responses" validate:"dive"`
}

type FollowupResponse struct {
	Demographic string `json:"demographic" validate:"required"`
	Question    string `json:"question"`
	Response    string `json:"response"`
}

type AnalysisStep struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SurveyContent is the generated part of a poll. It doubles as the
// context handed to the LLM when answering follow-up questions.
type SurveyContent struct {
	Topic             string             `json:"topic" validate:"required"`
	Summary           string             `json:"summary" validate:"required"`
	Personas          []Persona          `json:"personas" validate:"required,min=1,dive"`
	Questions         []SurveyQuestion   `json:"questions" validate:"required,min=1,dive"`
	FollowupResponses []FollowupResponse `json:"followupResponses" validate:"dive"`
}

// NewPoll holds everything needed to insert a poll row
type NewPoll struct {
	SurveyContent
	Prompt        string
	CreatedAt     time.Time
	AnalysisSteps []AnalysisStep
}

type Poll struct {
	ID                int                `json:"id"`
	Topic             string             `json:"topic"`
	Prompt            string             `json:"prompt"`
	Summary           string             `json:"summary"`
	Personas          []Persona          `json:"personas"`
	Questions         []SurveyQuestion   `json:"questions"`
	FollowupResponses []FollowupResponse `json:"followupResponses"`
	CreatedAt         time.Time          `json:"createdAt"`
	AnalysisSteps     []AnalysisStep     `json:"analysisSteps"`
}

// Content returns the generated survey content of a stored poll
func (p Poll) Content() SurveyContent {
	return SurveyContent{
		Topic:             p.Topic,
		Summary:           p.Summary,
		Personas:          p.Personas,
		Questions:         p.Questions,
		FollowupResponses: p.FollowupResponses,
	}
}

// Live channel messages

// InboundMessage is what clients send over the live channel
type InboundMessage struct {
	Type      string `json:"type"`
	PollID    int    `json:"pollId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type ConnectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type StepMessage struct {
	Type   string       `json:"type"`
	Step   AnalysisStep `json:"step"`
	PollID int          `json:"pollId"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
