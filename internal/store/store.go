// ABOUTME: Entity types and sentinel errors for fedicache persistence
// ABOUTME: Defines Identity, Instance, Account, Status, Poll structs shared by both stores

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Identity represents a signed-in (or pending) account on some instance.
// Preferences and PushAlerts are opaque JSON blobs owned by the caller.
type Identity struct {
	ID              string
	AccountURL      string
	Authenticated   bool
	Pending         bool
	LastUsedAt      time.Time
	InstanceURI     string // weak reference; the instance row may not exist yet
	Preferences     []byte
	PushAlerts      []byte
	LastDeviceToken []byte
}

// Instance holds cached server metadata, keyed by URI.
// Rows are replaced wholesale on every save.
type Instance struct {
	URI               string
	StreamingEndpoint string
	Title             string
	Thumbnail         *string
	Version           string
	MaxPostLength     *int
}

// Emoji is a custom emoji attached to an account's name or bio
type Emoji struct {
	Shortcode       string `json:"shortcode"`
	URL             string `json:"url"`
	StaticURL       string `json:"static_url"`
	VisibleInPicker bool   `json:"visible_in_picker"`
}

// Account represents a cached account profile. In the identity store it is
// scoped to the owning identity; in a content store it is a cached author.
type Account struct {
	ID                 string
	IdentityID         string // set only for identity-store rows
	Username           string
	DisplayName        string
	URL                string
	Avatar             string
	AvatarStatic       string
	Header             string
	HeaderStatic       string
	Emoji              []Emoji
	FollowRequestCount int
}

// Visibility values for Status rows
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
	VisibilityDirect   = "direct"
)

// Status represents a cached status. A row with ReblogOfID set is a reblog
// wrapper; engagement booleans are meaningful on the display status (the
// reblogged target), never on the wrapper.
type Status struct {
	ID              string
	AccountID       string
	URI             string
	CreatedAt       time.Time
	Content         string
	Visibility      string
	SpoilerText     string
	Sensitive       bool
	InReplyToID     *string
	ReblogOfID      *string
	PollID          *string
	Language        *string
	ReblogsCount    int
	FavouritesCount int
	RepliesCount    int
	Reblogged       bool
	Favourited      bool
	Bookmarked      bool
	Pinned          bool
	Muted           bool

	// ShowContent is local presentation state, never part of a remote
	// snapshot. Merges preserve it; new rows default to !Sensitive.
	ShowContent bool
}

// PollOption is one choice in a poll, with its running vote count
type PollOption struct {
	Title      string `json:"title"`
	VotesCount int    `json:"votes_count"`
}

// Poll holds the latest snapshot of a status's poll.
// Rows are replaced wholesale on every merge.
type Poll struct {
	ID          string
	ExpiresAt   *time.Time
	Expired     bool
	Multiple    bool
	VotesCount  int
	VotersCount *int
	Voted       bool
	OwnVotes    []int
	Options     []PollOption
}

// Attachment records metadata for media attached to a status.
// The media itself is never stored; upload/processing is external.
type Attachment struct {
	ID          string
	StatusID    string
	Type        string
	URL         string
	PreviewURL  *string
	RemoteURL   *string
	Description *string
	Blurhash    *string
	Ordering    int
}
