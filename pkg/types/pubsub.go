package types

// PubSubMessage is the envelope Eventarc delivers to a CloudEvent-triggered
// function for a Pub/Sub topic. Data arrives base64-encoded on the wire and
// decodes to the raw payload bytes.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PipelineTrigger is the payload of a pipeline-trigger message: which user to
// process, and optionally an override of the per-run date limit.
type PipelineTrigger struct {
	UserID    string `json:"user_id"`
	DateLimit int    `json:"date_limit,omitempty"`
}
