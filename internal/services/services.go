// package services defines interface Service for remote collection providers
//
// Spotify is the only production implementation
package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/machinemessiah/tagify-sub000/internal/models"
)

// Service is the remote half of playlist synchronization. The engine drives it
// with item keys (provider track ids) and collection ids (provider playlist
// ids) and never sees provider wire formats.
type Service interface {
	// ListMembers returns every member key of a collection in playlist order,
	// flattening pagination. Duplicate entries are preserved.
	ListMembers(ctx context.Context, collectionID string) ([]string, error)

	// AddMember appends an item to a collection. When the item is already a
	// member the call is a no-op and WasAdded is false.
	AddMember(ctx context.Context, itemKey, collectionID string) (AddResult, error)

	// RemoveMember removes every occurrence of an item from a collection.
	// Returns false when the item was not a member.
	RemoveMember(ctx context.Context, itemKey, collectionID string) (bool, error)

	// IsMember reports whether an item currently appears in a collection.
	IsMember(ctx context.Context, itemKey, collectionID string) (bool, error)

	// ListCollectionIDs returns the ids of every collection owned by the
	// authenticated user.
	ListCollectionIDs(ctx context.Context) ([]string, error)

	// CreateCollection creates a new collection and returns its id.
	CreateCollection(ctx context.Context, name, description string) (string, error)

	// GetTrack retrieves display metadata for a single item.
	GetTrack(ctx context.Context, itemKey string) (*models.Track, error)

	// GetTracks retrieves display metadata for a batch of items. Keys the
	// provider does not recognize are omitted from the result.
	GetTracks(ctx context.Context, itemKeys []string) ([]models.Track, error)

	// GetTempo returns the item's tempo in BPM from the provider's audio
	// analysis, unset when no analysis exists for it.
	GetTempo(ctx context.Context, itemKey string) (models.NullInt, error)

	// Name returns the provider name (e.g. "Spotify")
	Name() string
}

// AddResult reports the outcome of an AddMember call.
type AddResult struct {
	// Success is true when the collection contains the item after the call.
	Success bool
	// WasAdded is true only when this call performed the append.
	WasAdded bool
}

// OAuthService is implemented by providers that authenticate through an OAuth2
// authorization-code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the provider's authorization URL for the given
	// CSRF state.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying OAuth2 configuration.
	GetOAuthConfig() *oauth2.Config

	// Exchange trades an authorization code for a token set.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
