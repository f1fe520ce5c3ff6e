package pitchsdk

import "encoding/json"

// ============================================================================
// Token types
// ============================================================================

// tokenResponse is the auth service token payload. Different backend
// revisions emitted snake_case and camelCase field names; both are accepted.
type tokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
}

func (t *tokenResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		AccessToken       string `json:"access_token"`
		AccessTokenCamel  string `json:"accessToken"`
		RefreshToken      string `json:"refresh_token"`
		RefreshTokenCamel string `json:"refreshToken"`
		ExpiresIn         int    `json:"expires_in"`
		ExpiresInCamel    int    `json:"expiresIn"`
		TokenType         string `json:"token_type"`
		TokenTypeCamel    string `json:"tokenType"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.AccessToken = firstNonEmpty(aux.AccessToken, aux.AccessTokenCamel)
	t.RefreshToken = firstNonEmpty(aux.RefreshToken, aux.RefreshTokenCamel)
	t.TokenType = firstNonEmpty(aux.TokenType, aux.TokenTypeCamel)
	t.ExpiresIn = aux.ExpiresIn
	if t.ExpiresIn == 0 {
		t.ExpiresIn = aux.ExpiresInCamel
	}
	return nil
}

// complete reports whether the response carries a full credential pair.
func (t *tokenResponse) complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// ============================================================================
// User types
// ============================================================================

// User is a profile as returned by the user service.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Job       string `json:"job,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Company   string `json:"company,omitempty"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// RegisterRequest is the registration payload. Empty fields are stripped
// before sending, and the identity-provider ID is never sent even when a
// caller populates it: the backend assigns its own.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Job      string
	Sector   string
	Company  string
	Bio      string

	// IdentityProviderID is accepted for caller convenience but always
	// omitted from the wire payload.
	IdentityProviderID string
}

// payload builds the wire body with empty fields stripped.
func (r RegisterRequest) payload() map[string]string {
	fields := map[string]string{
		"email":    r.Email,
		"password": r.Password,
		"name":     r.Name,
		"job":      r.Job,
		"sector":   r.Sector,
		"company":  r.Company,
		"bio":      r.Bio,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

// DiscoveryPreferences filters which pitches the feed surfaces.
type DiscoveryPreferences struct {
	Sectors   []string `json:"sectors,omitempty"`
	Stages    []string `json:"stages,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

// ============================================================================
// Video types
// ============================================================================

// Video is a pitch video as returned by the video service.
type Video struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PlaybackURL string `json:"playback_url,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// FeedPage is one page of the pitch feed.
type FeedPage struct {
	Items      []Video `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
	Total      int     `json:"total"`
}

// CreateVideoRequest registers a new pitch video before upload.
type CreateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// VideoUpload is the upload slot returned for a newly registered video.
// UploadURL targets third-party storage and is consumed via Upload.
type VideoUpload struct {
	ID        string `json:"id"`
	UploadURL string `json:"uploadUrl"`
	Message   string `json:"message,omitempty"`
}

// VideoStats are the public counters for one video.
type VideoStats struct {
	VideoID   string `json:"video_id"`
	Likes     int    `json:"likes"`
	Favorites int    `json:"favorites"`
	Views     int    `json:"views"`
}

// WatchEntry is one row of the viewing history.
type WatchEntry struct {
	VideoID   string `json:"video_id"`
	WatchedAt string `json:"watched_at"`
	Progress  int    `json:"progress,omitempty"`
}

// ============================================================================
// Chat types
// ============================================================================

// ChatMessage is one direct message.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// ============================================================================
// Notification types
// ============================================================================

// NotifyRequest asks the notification service to deliver a message.
type NotifyRequest struct {
	Email   string `json:"email"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}
