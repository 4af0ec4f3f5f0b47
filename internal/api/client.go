// ABOUTME: Remote API client interface and typed entity snapshots
// ABOUTME: The cache consumes fully-typed snapshots; HTTP semantics live entirely behind Client

package api

import (
	"context"
	"fmt"
	"time"
)

// Error is an opaque transport/protocol failure from the remote client.
// The cache never inspects it beyond forwarding; retry policy belongs to the
// client implementation, not the cache.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api: %s: %d %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Endpoint, e.Message)
}

// Emoji is a custom emoji as returned by the server
type Emoji struct {
	Shortcode       string `json:"shortcode"`
	URL             string `json:"url"`
	StaticURL       string `json:"static_url"`
	VisibleInPicker bool   `json:"visible_in_picker"`
}

// Account is an account snapshot
type Account struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	DisplayName        string  `json:"display_name"`
	URL                string  `json:"url"`
	Avatar             string  `json:"avatar"`
	AvatarStatic       string  `json:"avatar_static"`
	Header             string  `json:"header"`
	HeaderStatic       string  `json:"header_static"`
	Emojis             []Emoji `json:"emojis"`
	FollowRequestCount int     `json:"follow_requests_count"`
}

// PollOption is one poll choice with its running count
type PollOption struct {
	Title      string `json:"title"`
	VotesCount int    `json:"votes_count"`
}

// Poll is a complete poll snapshot; merges replace the cached row wholesale
type Poll struct {
	ID          string       `json:"id"`
	ExpiresAt   *time.Time   `json:"expires_at"`
	Expired     bool         `json:"expired"`
	Multiple    bool         `json:"multiple"`
	VotesCount  int          `json:"votes_count"`
	VotersCount *int         `json:"voters_count"`
	Voted       bool         `json:"voted"`
	OwnVotes    []int        `json:"own_votes"`
	Options     []PollOption `json:"options"`
}

// Attachment is media metadata attached to a status
type Attachment struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	URL         string  `json:"url"`
	PreviewURL  *string `json:"preview_url"`
	RemoteURL   *string `json:"remote_url"`
	Description *string `json:"description"`
	Blurhash    *string `json:"blurhash"`
}

// Status is a status snapshot. Account and Reblog may be nested (and merge
// depth-first); when Account is nil the snapshot references an already-cached
// author by AccountID alone.
type Status struct {
	ID              string        `json:"id"`
	AccountID       string        `json:"-"`
	Account         *Account      `json:"account"`
	URI             string        `json:"uri"`
	CreatedAt       time.Time     `json:"created_at"`
	Content         string        `json:"content"`
	Visibility      string        `json:"visibility"`
	SpoilerText     string        `json:"spoiler_text"`
	Sensitive       bool          `json:"sensitive"`
	InReplyToID     *string       `json:"in_reply_to_id"`
	Reblog          *Status       `json:"reblog"`
	Poll            *Poll         `json:"poll"`
	Language        *string       `json:"language"`
	ReblogsCount    int           `json:"reblogs_count"`
	FavouritesCount int           `json:"favourites_count"`
	RepliesCount    int           `json:"replies_count"`
	Reblogged       bool          `json:"reblogged"`
	Favourited      bool          `json:"favourited"`
	Bookmarked      bool          `json:"bookmarked"`
	Pinned          bool          `json:"pinned"`
	Muted           bool          `json:"muted"`
	Attachments     []*Attachment `json:"media_attachments"`
}

// Instance is a server metadata snapshot
type Instance struct {
	URI               string  `json:"uri"`
	StreamingEndpoint string  `json:"streaming_api"`
	Title             string  `json:"title"`
	Thumbnail         *string `json:"thumbnail"`
	Version           string  `json:"version"`
	MaxPostLength     *int    `json:"max_toot_chars"`
}

// Client performs remote requests and returns typed snapshots or an *Error.
// Every call produces either a complete snapshot or a failure; nothing is
// merged incrementally. Implementations own sockets, retries and auth.
type Client interface {
	Status(ctx context.Context, id string) (*Status, error)
	DeleteStatus(ctx context.Context, id string) error

	FavouriteStatus(ctx context.Context, id string) (*Status, error)
	UnfavouriteStatus(ctx context.Context, id string) (*Status, error)
	ReblogStatus(ctx context.Context, id string) (*Status, error)
	UnreblogStatus(ctx context.Context, id string) (*Status, error)
	BookmarkStatus(ctx context.Context, id string) (*Status, error)
	UnbookmarkStatus(ctx context.Context, id string) (*Status, error)
	PinStatus(ctx context.Context, id string) (*Status, error)
	UnpinStatus(ctx context.Context, id string) (*Status, error)
	MuteStatus(ctx context.Context, id string) (*Status, error)
	UnmuteStatus(ctx context.Context, id string) (*Status, error)

	Poll(ctx context.Context, id string) (*Poll, error)
	VotePoll(ctx context.Context, id string, choices []int) (*Poll, error)

	Instance(ctx context.Context, uri string) (*Instance, error)
	VerifyCredentials(ctx context.Context) (*Account, error)
}
