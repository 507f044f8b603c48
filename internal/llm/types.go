package llm

// BackendStatus is one entry of GET /llm/backends.
type BackendStatus struct {
	Name      string   `json:"name" example:"primary"`
	Model     string   `json:"model" example:"llama3:latest"`
	Timeout   string   `json:"timeout" example:"45s"`
	Reachable bool     `json:"reachable"`
	Models    []string `json:"models,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// GenerateRequest is the request body for POST /llm/generate.
type GenerateRequest struct {
	Prompt      string  `json:"prompt" example:"Explain recursion in one sentence."`
	System      string  `json:"system,omitempty"`
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	TopP        float64 `json:"top_p,omitempty" example:"0.9"`
	MaxTokens   int     `json:"max_tokens,omitempty" example:"512"`
	JSON        bool    `json:"json,omitempty"`
}

// GenerateResponse is the response for POST /llm/generate.
type GenerateResponse struct {
	Text      string `json:"text"`
	Backend   string `json:"backend" example:"primary"`
	Model     string `json:"model" example:"llama3:latest"`
	ElapsedMS int64  `json:"elapsed_ms" example:"1840"`
	Tokens    int    `json:"tokens"`
}
