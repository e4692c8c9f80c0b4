package gemini

// Wire types for the generateContent endpoint. Only the fields this module
// reads or writes are modeled.

type generateContentRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// firstCandidateText concatenates the text parts of the first candidate.
func (r *generateContentResponse) firstCandidateText() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var text string
	for _, candidatePart := range r.Candidates[0].Content.Parts {
		text += candidatePart.Text
	}
	return text
}

func (r *generateContentResponse) firstFinishReason() string {
	if len(r.Candidates) == 0 {
		return "none"
	}
	return r.Candidates[0].FinishReason
}
