package domain

import "time"

type FigmaUser struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Email  string `json:"email,omitempty"`
	ImgURL string `json:"imgUrl,omitempty"`
}

type FigmaPreference struct {
	WebsiteURL    string `json:"websiteUrl"`
	FrameID       string `json:"frameId"`
	FrameName     string `json:"frameName,omitempty"`
	FileID        string `json:"fileId,omitempty"`
	FrameURL      string `json:"frameUrl,omitempty"`
	FrameImageURL string `json:"frameImageUrl,omitempty"`
}

type DesignLink struct {
	ID           string    `json:"id"`
	WebsiteURL   string    `json:"websiteUrl"`
	PageTitle    string    `json:"pageTitle,omitempty"`
	FigmaFileID  string    `json:"figmaFileId"`
	FigmaFrameID string    `json:"figmaFrameId"`
	FrameName    string    `json:"frameName,omitempty"`
	FigmaURL     string    `json:"figmaUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

type DesignLinkData struct {
	FigmaFileID  string `json:"figmaFileId"`
	FigmaFrameID string `json:"figmaFrameId"`
	FrameName    string `json:"frameName,omitempty"`
	FigmaURL     string `json:"figmaUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type DesignLinkInput struct {
	WebsiteURL string         `json:"websiteUrl"`
	PageTitle  string         `json:"pageTitle,omitempty"`
	FaviconURL string         `json:"faviconUrl,omitempty"`
	LinkData   DesignLinkData `json:"linkData"`
}

type FigmaMetadata struct {
	Connected   bool             `json:"connected"`
	User        *FigmaUser       `json:"user,omitempty"`
	WebsiteURL  string           `json:"websiteUrl,omitempty"`
	Preference  *FigmaPreference `json:"preference,omitempty"`
	DesignLinks []DesignLink     `json:"designLinks"`
}

type AccessToken struct {
	Token     string    `json:"accessToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the token can still be used at now, keeping skew in reserve.
func (t AccessToken) Valid(now time.Time, skew time.Duration) bool {
	if t.Token == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(skew).Before(t.ExpiresAt)
}
