package api

// GenerateRequest submits a text-generation job.
type GenerateRequest struct {
	Prompt  string `json:"prompt" binding:"required"`
	Model   string `json:"model,omitempty"`
	Version string `json:"version,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
	UserID  string `json:"user_id" binding:"required"`

	// Sampling parameters, passed through to the backend untouched.
	MaxTokens   int      `json:"max_tokens,omitempty" binding:"omitempty,min=1"`
	Temperature *float64 `json:"temperature,omitempty" binding:"omitempty"`
	TopP        *float64 `json:"top_p,omitempty" binding:"omitempty"`
	TopK        *int     `json:"top_k,omitempty" binding:"omitempty,min=0"`
	Stop        []string `json:"stop,omitempty"`

	Priority string `json:"priority,omitempty" binding:"omitempty,oneof=low normal high critical"`
}

// ImageGenerateRequest submits an image-generation job.
type ImageGenerateRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Model          string `json:"model,omitempty"`
	Version        string `json:"version,omitempty"`
	UserID         string `json:"user_id" binding:"required"`

	Width         int      `json:"width,omitempty" binding:"omitempty,min=64,max=4096"`
	Height        int      `json:"height,omitempty" binding:"omitempty,min=64,max=4096"`
	Steps         int      `json:"steps,omitempty" binding:"omitempty,min=1,max=150"`
	GuidanceScale *float64 `json:"guidance_scale,omitempty"`

	Priority string `json:"priority,omitempty" binding:"omitempty,oneof=low normal high critical"`
}

// GenerateInput is the opaque payload stored with a text job and forwarded
// to the backend.
type GenerateInput struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ImageInput is the opaque payload stored with an image job.
type ImageInput struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
}
