package domain

import "time"

// Repo is a core entity describing a candidate repository fetched from
// one of the trending sources.
type Repo struct {
	Name        string
	FullName    string
	Description string
	Language    string
	Stars       int
	URL         string
}

// Channel identifies which delivery path produced a post.
type Channel string

const (
	ChannelPrimary  Channel = "primary"
	ChannelFallback Channel = "fallback"
)

// PublishRequest is the unit of work submitted to the publisher.
// Immutable once submitted.
type PublishRequest struct {
	RepoURL   string
	MainText  string
	ReplyText string
	MediaPath string
}

// PublishResult is the terminal outcome of a publish run.
type PublishResult struct {
	Channel     Channel
	MainPostID  string
	ReplyPostID string
	Failure     *PublishError
}

// Succeeded reports whether the main post went out on either channel. The
// identifier may still be empty when a fallback post could not be traced
// back to its platform id.
func (r PublishResult) Succeeded() bool {
	return r.Failure == nil && r.Channel != ""
}

// PostedRecord is one entry in the posting history.
type PostedRecord struct {
	RepoURL  string
	PostID   string
	PostedAt time.Time
}
