package models

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type HealthResponse struct {
	OK                bool          `json:"ok"`
	IMAPConfigured    bool          `json:"imapConfigured"`
	BlueskyConfigured bool          `json:"blueSkyConfigured"`
	AdminConfigured   bool          `json:"adminConfigured"`
	IMAP              IMAPHealth    `json:"imap"`
	Bluesky           BlueskyHealth `json:"bluesky"`
}

type IMAPHealth struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Mailbox        string `json:"mailbox"`
	TLS            bool   `json:"tls"`
	UserConfigured bool   `json:"userConfigured"`
}

type BlueskyHealth struct {
	Host             string `json:"host"`
	HandleConfigured bool   `json:"handleConfigured"`
}

// SplitRequest is the body of POST /api/thread/split. MaxLength falls back to the configured maximum.
type SplitRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"maxLength,omitempty"`
}

type SplitResponse struct {
	MaxLength int          `json:"maxLength"`
	Chunks    []ChunkEntry `json:"chunks"`
}

type ChunkEntry struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// PublishRequest is the body of POST /api/bluesky/publish.
type PublishRequest struct {
	Thread []string `json:"thread"`
}

// PostRef identifies a created post.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type PublishResponse struct {
	OK    bool      `json:"ok"`
	RunID string    `json:"runId"`
	Posts []PostRef `json:"posts"`
}

// PublishFailureResponse extends ErrorResponse with the posts that are already live.
type PublishFailureResponse struct {
	ErrorResponse
	RunID     string    `json:"runId,omitempty"`
	Published int       `json:"published"`
	Posts     []PostRef `json:"posts"`
}

// ProgressEvent is broadcast over the WebSocket while a thread is being published.
type ProgressEvent struct {
	Type  string   `json:"type"`
	RunID string   `json:"runId"`
	Index int      `json:"index"`
	Total int      `json:"total"`
	Post  *PostRef `json:"post,omitempty"`
	Error string   `json:"error,omitempty"`
}

const (
	ProgressPosted = "publish.posted"
	ProgressFailed = "publish.failed"
	ProgressDone   = "publish.done"
)
