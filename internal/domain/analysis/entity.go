package analysis

import (
	"encoding/json"
	"time"
)

// Type enum
type Type string

const (
	TypeDiagnosis    Type = "diagnosis"
	TypeCopywriting  Type = "copywriting"
	TypeBenchmarking Type = "benchmarking"
	TypeSimulation   Type = "simulation"
	TypeAutomation   Type = "automation"
)

// Types lists every known category in display order.
var Types = []Type{TypeDiagnosis, TypeCopywriting, TypeBenchmarking, TypeSimulation, TypeAutomation}

func (t Type) Known() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Request is what the caller asks the dispatcher for.
type Request struct {
	Model        string          `json:"model"`
	Prompt       string          `json:"prompt"`
	AnalysisType Type            `json:"analysisType"`
	ProductData  json.RawMessage `json:"productData,omitempty"`

	// optional, only used for history
	UserID    string `json:"userId,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

// Usage mirrors the token accounting returned by chat-completion APIs.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the normalized envelope. Response is set iff Success,
// Error iff not.
type Response struct {
	Success      bool      `json:"success"`
	Model        string    `json:"model,omitempty"`
	AnalysisType Type      `json:"analysisType,omitempty"`
	Response     string    `json:"response,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error,omitempty"`
}

// Record is one stored analysis result.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    string    `json:"product_id,omitempty"`
	Model        string    `json:"model"`
	Provider     Family    `json:"provider"`
	AnalysisType Type      `json:"analysis_type"`
	Response     string    `json:"response"`
	Usage        Usage     `json:"usage"`
	ArchiveURL   string    `json:"archive_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page is a page of history records.
type Page struct {
	Data     []*Record `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
